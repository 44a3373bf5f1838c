package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"listing-service/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentsPrefix is the path segment public document URLs are served under
const DocumentsPrefix = "documents"

// Upload is a presigned PUT for a listing document
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	Path      string    `json:"path"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IDocumentStorage defines the document upload operations
type IDocumentStorage interface {
	PresignDocumentUpload(ctx context.Context, userID, listingID, filename, contentType string) (*Upload, error)
}

// s3Storage implements IDocumentStorage on an S3-compatible bucket
type s3Storage struct {
	bucket        string
	publicBaseURL string
	ttl           time.Duration
	presignClient *s3.PresignClient
	log           *zap.Logger
}

// NewS3Storage creates a new document storage service
func NewS3Storage(ctx context.Context, cfg config.DocumentsConfig, log *zap.Logger) (IDocumentStorage, error) {
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &s3Storage{
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		ttl:           ttl,
		presignClient: s3.NewPresignClient(s3Client),
		log:           log,
	}, nil
}

// PresignDocumentUpload returns a presigned PUT URL together with the stored
// path and the public URL the document will be reachable at.
func (s *s3Storage) PresignDocumentUpload(ctx context.Context, userID, listingID, filename, contentType string) (*Upload, error) {
	key := ObjectKey(userID, listingID, filename, uuid.NewString())

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", key, err)
	}

	s.log.Debug("Generated presigned document upload", zap.String("key", key))
	return &Upload{
		UploadURL: req.URL,
		Path:      key,
		PublicURL: PublicURL(s.publicBaseURL, key),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}, nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips directories and characters unsafe in object keys
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = unsafeFilename.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// ObjectKey builds <user>/<listing|tmp>/<id>_<file>
func ObjectKey(userID, listingID, filename, id string) string {
	scope := listingID
	if scope == "" {
		scope = "tmp"
	}
	return fmt.Sprintf("%s/%s/%s_%s", userID, scope, id, SanitizeFilename(filename))
}

// PublicURL returns the URL a stored document path is served from
func PublicURL(baseURL, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), DocumentsPrefix, key)
}

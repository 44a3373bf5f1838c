package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"listing-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "contrato_final.pdf", SanitizeFilename("contrato final.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "scan.png", SanitizeFilename(`C:\Users\me\scan.png`))
	assert.Equal(t, "file", SanitizeFilename("..."))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "u1/l1/abc_doc.pdf", ObjectKey("u1", "l1", "doc.pdf", "abc"))
	assert.Equal(t, "u1/tmp/abc_doc.pdf", ObjectKey("u1", "", "doc.pdf", "abc"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/documents/u1/l1/a_b.pdf", PublicURL("https://cdn.example.com/", "u1/l1/a_b.pdf"))
}

func TestPresignDocumentUpload(t *testing.T) {
	st, err := NewS3Storage(context.Background(), config.DocumentsConfig{
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "documents",
		Endpoint:        "http://localhost:9000",
		PublicBaseURL:   "https://cdn.example.com",
		PresignTTL:      time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)

	up, err := st.PresignDocumentUpload(context.Background(), "u1", "", "my file.pdf", "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Path, "u1/tmp/"))
	assert.True(t, strings.HasSuffix(up.Path, "_my_file.pdf"))
	assert.True(t, strings.HasPrefix(up.UploadURL, "http://localhost:9000/documents/u1/tmp/"))
	assert.Equal(t, "https://cdn.example.com/documents/"+up.Path, up.PublicURL)
}

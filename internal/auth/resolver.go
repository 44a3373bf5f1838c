package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Claims are the access token claims the service reads
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IdentityResolver exchanges an access token for a user id
type IdentityResolver interface {
	ResolveAuthUserID(ctx context.Context, accessToken string) (string, bool)
}

// Resolver validates HS256 access tokens issued by the identity provider
type Resolver struct {
	secret   []byte
	audience string
	log      *zap.Logger
}

// NewResolver creates a resolver. An empty audience skips the aud check.
func NewResolver(secret, audience string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{secret: []byte(secret), audience: audience, log: log}
}

// ResolveAuthUserID returns the token subject. It reports false for an empty
// or invalid token and never returns an error; callers treat false as
// unauthenticated.
func (r *Resolver) ResolveAuthUserID(ctx context.Context, accessToken string) (string, bool) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", false
	}
	if len(r.secret) == 0 {
		r.log.Warn("Access token rejected: no signing secret configured")
		return "", false
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		r.log.Debug("Access token rejected", zap.Error(err))
		return "", false
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		r.log.Debug("Access token subject is not a user id", zap.String("sub", claims.Subject))
		return "", false
	}
	return sub.String(), true
}

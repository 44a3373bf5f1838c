package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) Claims {
	return Claims{
		Email: "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestResolveAuthUserID_Valid(t *testing.T) {
	r := NewResolver(testSecret, "authenticated", nil)
	sub := uuid.NewString()

	id, ok := r.ResolveAuthUserID(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(sub)))
	require.True(t, ok)
	assert.Equal(t, sub, id)
}

func TestResolveAuthUserID_Rejects(t *testing.T) {
	r := NewResolver(testSecret, "authenticated", nil)
	sub := uuid.NewString()

	expired := validClaims(sub)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAud := validClaims(sub)
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	noExpiry := validClaims(sub)
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"empty":           "",
		"garbage":         "not-a-token",
		"wrong secret":    sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims(sub)),
		"expired":         sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"wrong audience":  sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongAud),
		"no expiry":       sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"non uuid sub":    sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("admin")),
		"other algorithm": sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims(sub)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			id, ok := r.ResolveAuthUserID(context.Background(), token)
			assert.False(t, ok)
			assert.Empty(t, id)
		})
	}
}

func TestResolveAuthUserID_NoSecret(t *testing.T) {
	r := NewResolver("", "", nil)
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(uuid.NewString()))
	_, ok := r.ResolveAuthUserID(context.Background(), token)
	assert.False(t, ok)
}

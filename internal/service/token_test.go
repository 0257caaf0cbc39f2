package service

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenIssueAndVerify(t *testing.T) {
	tokens := NewTokenService(testSecret, "authcore", time.Hour)

	token, expiresAt, err := tokens.Issue("user-1", tokens.TTL())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenZeroTTLIsExpired(t *testing.T) {
	tokens := NewTokenService(testSecret, "authcore", time.Hour)

	token, _, err := tokens.Issue("user-1", 0)
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenExpiresWithClock(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenService(testSecret, "authcore", time.Hour, WithClock(fixedClock(now)))
	token, _, err := issuer.Issue("user-1", time.Hour)
	require.NoError(t, err)

	later := NewTokenService(testSecret, "authcore", time.Hour, WithClock(fixedClock(now.Add(59*time.Minute))))
	_, err = later.Verify(token)
	assert.NoError(t, err)

	expired := NewTokenService(testSecret, "authcore", time.Hour, WithClock(fixedClock(now.Add(time.Hour))))
	_, err = expired.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenTamperedSignature(t *testing.T) {
	tokens := NewTokenService(testSecret, "authcore", time.Hour)
	token, _, err := tokens.Issue("user-1", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0xff
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	_, err = tokens.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenRejects(t *testing.T) {
	tokens := NewTokenService(testSecret, "authcore", time.Hour)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "authcore",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	noSubject := valid
	noSubject.Subject = ""
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-another-secret!!"), valid)},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte(testSecret), valid)},
		{"none algorithm", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{"missing subject", sign(jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"missing expiry", sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenIssueRequiresUser(t *testing.T) {
	tokens := NewTokenService(testSecret, "authcore", time.Hour)
	_, _, err := tokens.Issue("", time.Hour)
	assert.Error(t, err)
}

package provider

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testClientID = "client-123"

// fakeIssuer is a minimal OpenID Connect issuer: discovery, JWKS and a token
// endpoint that returns a signed ID token with the configured claims.
type fakeIssuer struct {
	server   *httptest.Server
	key      *rsa.PrivateKey
	claims   jwt.MapClaims
	omitID   bool
	verifier string
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIssuer{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                                f.server.URL,
			"authorization_endpoint":                f.server.URL + "/authorize",
			"token_endpoint":                        f.server.URL + "/token",
			"jwks_uri":                              f.server.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("GET /keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.verifier = r.PostForm.Get("code_verifier")
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		resp := map[string]any{"access_token": "access", "token_type": "Bearer", "expires_in": 3600}
		if !f.omitID {
			token := jwt.NewWithClaims(jwt.SigningMethodRS256, f.claims)
			token.Header["kid"] = "test-key"
			signed, err := token.SignedString(key)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			resp["id_token"] = signed
		}
		writeJSON(w, resp)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	now := time.Now()
	f.claims = jwt.MapClaims{
		"iss":            f.server.URL,
		"aud":            testClientID,
		"sub":            "google-sub-1",
		"email":          "grace@example.com",
		"email_verified": true,
		"name":           "Grace Hopper",
		"picture":        "https://example.com/grace.png",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T, f *fakeIssuer) *OIDC {
	t.Helper()
	p, err := NewOIDC(context.Background(), Config{
		Name:         "google",
		Issuer:       f.server.URL,
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:5001/auth/google/callback",
		Timeout:      5 * time.Second,
	})
	require.NoError(t, err)
	return p
}

func TestAuthCodeURL(t *testing.T) {
	p := newTestProvider(t, newFakeIssuer(t))

	verifier := oauth2.GenerateVerifier()
	raw := p.AuthCodeURL("state-1", verifier)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.Contains(t, q.Get("scope"), "openid")
	assert.Contains(t, q.Get("scope"), "email")
}

func TestExchange(t *testing.T) {
	f := newFakeIssuer(t)
	p := newTestProvider(t, f)

	claims, err := p.Exchange(context.Background(), "good-code", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "google", claims.Provider)
	assert.Equal(t, "google-sub-1", claims.SubjectID)
	assert.Equal(t, "grace@example.com", claims.Email)
	assert.Equal(t, "Grace Hopper", claims.Name)
	assert.Equal(t, "https://example.com/grace.png", claims.PictureURL)
	assert.True(t, claims.EmailVerified)
	assert.Equal(t, "verifier-1", f.verifier)
}

func TestExchangeFailures(t *testing.T) {
	t.Run("rejected code", func(t *testing.T) {
		p := newTestProvider(t, newFakeIssuer(t))
		_, err := p.Exchange(context.Background(), "bad-code", "v")
		assert.ErrorIs(t, err, ErrExchange)
	})

	t.Run("missing id token", func(t *testing.T) {
		f := newFakeIssuer(t)
		f.omitID = true
		_, err := newTestProvider(t, f).Exchange(context.Background(), "good-code", "v")
		assert.ErrorIs(t, err, ErrExchange)
	})

	t.Run("wrong audience", func(t *testing.T) {
		f := newFakeIssuer(t)
		f.claims["aud"] = "someone-else"
		_, err := newTestProvider(t, f).Exchange(context.Background(), "good-code", "v")
		assert.ErrorIs(t, err, ErrExchange)
	})

	t.Run("missing email", func(t *testing.T) {
		f := newFakeIssuer(t)
		delete(f.claims, "email")
		_, err := newTestProvider(t, f).Exchange(context.Background(), "good-code", "v")
		assert.ErrorIs(t, err, ErrExchange)
	})

	t.Run("cancelled", func(t *testing.T) {
		p := newTestProvider(t, newFakeIssuer(t))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Exchange(ctx, "good-code", "v")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestNewOIDCRequiresConfig(t *testing.T) {
	_, err := NewOIDC(context.Background(), Config{Name: "google"})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	p := newTestProvider(t, newFakeIssuer(t))
	r := NewRegistry(p)

	got, err := r.Get("google")
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = r.Get("github")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, 1, r.Len())
}

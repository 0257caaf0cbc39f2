// Package provider adapts external OAuth2/OpenID Connect identity providers.
// Providers return verified claim sets only; they never create, link or
// sign in users.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/templui/authcore/internal/model"
)

var (
	// ErrExchange means the provider rejected the code or returned an unusable ID token.
	ErrExchange = errors.New("oauth exchange failed")

	// ErrUnavailable means the provider could not be reached in time.
	ErrUnavailable = errors.New("oauth provider unavailable")

	ErrUnknownProvider = errors.New("unknown oauth provider")
)

type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the authorization URL for state, bound to the
	// PKCE verifier the caller keeps until the callback.
	AuthCodeURL(state, verifier string) string

	// Exchange trades the authorization code for a verified claim set.
	Exchange(ctx context.Context, code, verifier string) (*model.FederatedClaims, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]OAuthProvider
}

func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[string]OAuthProvider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Len() int {
	return len(r.providers)
}

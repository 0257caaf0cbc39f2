package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/templui/authcore/internal/model"
	"golang.org/x/oauth2"
)

// GoogleIssuer is Google's OpenID Connect issuer.
const GoogleIssuer = "https://accounts.google.com"

// Config describes an OpenID Connect relying party.
type Config struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Timeout bounds discovery and each code exchange.
	Timeout time.Duration
}

// OIDC is an OAuthProvider backed by OpenID Connect discovery and ID-token verification.
type OIDC struct {
	name        string
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	timeout     time.Duration
}

// NewGoogle creates the Google provider.
func NewGoogle(ctx context.Context, clientID, clientSecret, redirectURL string, timeout time.Duration) (*OIDC, error) {
	return NewOIDC(ctx, Config{
		Name:         model.ProviderGoogle,
		Issuer:       GoogleIssuer,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Timeout:      timeout,
	})
}

func NewOIDC(ctx context.Context, cfg Config) (*OIDC, error) {
	if cfg.Name == "" || cfg.Issuer == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("oidc provider config missing required fields")
	}

	// The discovery context is kept for later key fetches, so bound requests
	// through the client rather than with a cancellable context.
	if cfg.Timeout > 0 {
		ctx = oidc.ClientContext(ctx, &http.Client{Timeout: cfg.Timeout})
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s oidc provider: %w", cfg.Name, err)
	}

	return &OIDC{
		name: cfg.Name,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		timeout:  cfg.Timeout,
	}, nil
}

func (p *OIDC) Name() string {
	return p.name
}

func (p *OIDC) AuthCodeURL(state, verifier string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (p *OIDC) Exchange(ctx context.Context, code, verifier string) (*model.FederatedClaims, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, p.exchangeError("token exchange", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: %s did not return an id_token", ErrExchange, p.name)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, p.exchangeError("id_token verification", err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	err = idToken.Claims(&claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %s id_token claims: %w", ErrExchange, p.name, err)
	}

	if claims.Subject == "" || strings.TrimSpace(claims.Email) == "" {
		return nil, fmt.Errorf("%w: %s id_token missing required claims", ErrExchange, p.name)
	}

	slog.Debug("oidc id_token verified",
		"provider", p.name,
		"issuer", idToken.Issuer,
		"email_verified", claims.EmailVerified,
		"expiry_unix", idToken.Expiry.Unix(),
	)

	return &model.FederatedClaims{
		Provider:      p.name,
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		PictureURL:    claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func (p *OIDC) exchangeError(step string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, p.name, step, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrExchange, p.name, step, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

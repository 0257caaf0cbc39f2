package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/authcore/internal/ctxkeys"
	"github.com/templui/authcore/internal/provider"
	"github.com/templui/authcore/internal/service"
	"golang.org/x/oauth2"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"
	oauthCookieAge = 600 // 10 minutes
)

type oauthHandler struct {
	authService *service.AuthService
	providers   *provider.Registry
}

func NewOAuthHandler(authService *service.AuthService, providers *provider.Registry) *oauthHandler {
	return &oauthHandler{authService: authService, providers: providers}
}

// Login returns the provider consent URL and stores state and PKCE verifier in cookies
func (h *oauthHandler) Login(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(r.PathValue("provider"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Sign-in provider is not configured")
		return
	}

	state := generateOAuthState()
	verifier := oauth2.GenerateVerifier()

	h.setCookie(w, r, p.Name(), stateCookie, state, oauthCookieAge)
	h.setCookie(w, r, p.Name(), verifierCookie, verifier, oauthCookieAge)

	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": p.AuthCodeURL(state, verifier),
		"state":    state,
	})
}

// Callback exchanges the authorization code and signs the user in
func (h *oauthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(r.PathValue("provider"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Sign-in provider is not configured")
		return
	}

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		slog.Warn("oauth callback returned error", "provider", p.Name(), "error", errParam, "desc", query.Get("error_description"))
		writeMessage(w, http.StatusUnauthorized, "Authorization was denied")
		return
	}

	// Validate state parameter for CSRF protection
	state := query.Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state validation failed", "provider", p.Name(), "error", err)
		writeMessage(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	verifier, err := r.Cookie(verifierCookie)
	if err != nil || verifier.Value == "" {
		writeMessage(w, http.StatusBadRequest, "Missing PKCE verifier")
		return
	}

	// Clear flow cookies
	h.setCookie(w, r, p.Name(), stateCookie, "", -1)
	h.setCookie(w, r, p.Name(), verifierCookie, "", -1)

	code := query.Get("code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "Authorization code not provided")
		return
	}

	claims, err := p.Exchange(r.Context(), code, verifier.Value)
	if err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			slog.Warn("oauth exchange unavailable", "provider", p.Name(), "error", err)
			writeServiceError(w, service.ErrUpstreamUnavailable)
			return
		}
		slog.Warn("oauth exchange failed", "provider", p.Name(), "error", err)
		writeMessage(w, http.StatusUnauthorized, "Authentication failed")
		return
	}

	session, err := h.authService.FederatedLogin(r.Context(), claims)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse("Login successful", session))
}

func (h *oauthHandler) setCookie(w http.ResponseWriter, r *http.Request, providerName, name, value string, maxAge int) {
	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/" + providerName,
		HttpOnly: true,
		Secure:   isProduction, // Secure flag based on APP_ENV (safer than r.TLS behind load balancers)
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

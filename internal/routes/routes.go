package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/templui/authcore/internal/app"
	"github.com/templui/authcore/internal/handler"
	"github.com/templui/authcore/internal/middleware"
)

// SetupRoutes builds the HTTP handler. Background work started here, such as
// rate limiter sweeps, stops when ctx is done.
func SetupRoutes(ctx context.Context, app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB, app.Cfg.AppName)
	auth := handler.NewAuthHandler(app.AuthService)
	oauth := handler.NewOAuthHandler(app.AuthService, app.Providers)
	profile := handler.NewProfileHandler(app.AuthService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)

	// Rate limiters, one per route group
	proxies := middleware.WithTrustedProxies(app.Cfg.TrustedProxies)
	credentialLimiter := middleware.RateLimitAuth(proxies)
	oauthLimiter := middleware.RateLimitOAuth(proxies)
	go credentialLimiter.Run(ctx, 5*time.Minute)
	go oauthLimiter.Run(ctx, 5*time.Minute)

	// Auth - credential endpoints
	limitCredentials := middleware.RateLimit(credentialLimiter)
	mux.HandleFunc("POST /register", limitCredentials(auth.Register))
	mux.HandleFunc("POST /login", limitCredentials(auth.Login))

	// OAuth
	limitOAuth := middleware.RateLimit(oauthLimiter)
	mux.HandleFunc("GET /auth/{provider}/login", limitOAuth(oauth.Login))
	mux.HandleFunc("GET /auth/{provider}/callback", limitOAuth(oauth.Callback))

	// ============================================================================
	// PROTECTED ROUTES (bearer token)
	// ============================================================================

	mux.HandleFunc("GET /profile", middleware.RequireToken(profile.Profile))
	mux.HandleFunc("PUT /profile", middleware.RequireToken(profile.UpdateProfile))
	mux.HandleFunc("GET /profile/preferences", middleware.RequireToken(profile.Preferences))
	mux.HandleFunc("POST /logout", middleware.RequireToken(auth.Logout))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Recover,
		middleware.Config(app.Cfg),
		middleware.BearerToken,
	)

	return handler
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/authcore/internal/config"
	"github.com/templui/authcore/internal/db"
	"github.com/templui/authcore/internal/provider"
	"github.com/templui/authcore/internal/repository"
	"github.com/templui/authcore/internal/service"
	"github.com/templui/authcore/internal/service/password"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	AuthService  *service.AuthService
	EmailService *service.EmailService
	Providers    *provider.Registry
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	providers    []provider.OAuthProvider
	providersSet bool
}

// WithProviders replaces the providers built from configuration.
// Passing none disables federated sign-in.
func WithProviders(providers ...provider.OAuthProvider) Option {
	return func(o *options) {
		o.providers = providers
		o.providersSet = true
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Initialize database
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if cfg.AutoMigrate {
		err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	preferencesRepository := repository.NewPreferencesRepository(database)

	// Services
	hasher, err := password.NewFromConfig(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.AppName, cfg.JWTExpiry)
	authService := service.NewAuthService(
		userRepository,
		preferencesRepository,
		hasher,
		tokenService,
		emailService,
		cfg.StoreTimeout,
	)

	// OAuth providers (optional)
	providers := o.providers
	if !o.providersSet {
		providers, err = configuredProviders(ctx, cfg)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	registry := provider.NewRegistry(providers...)
	slog.Info("federated sign-in providers registered", "count", registry.Len())

	return &App{
		Cfg:          cfg,
		DB:           database,
		AuthService:  authService,
		EmailService: emailService,
		Providers:    registry,
	}, nil
}

func configuredProviders(ctx context.Context, cfg *config.Config) ([]provider.OAuthProvider, error) {
	if !cfg.GoogleEnabled() {
		slog.Info("google sign-in disabled (GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set)")
		return nil, nil
	}

	google, err := provider.NewGoogle(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.OAuthTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize google provider: %w", err)
	}
	slog.Info("google sign-in enabled", "redirect_url", cfg.GoogleRedirectURL)
	return []provider.OAuthProvider{google}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

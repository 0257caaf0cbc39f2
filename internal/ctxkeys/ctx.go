package ctxkeys

import (
	"context"

	"github.com/templui/authcore/internal/config"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	TokenKey     contextKey = "token"
	ConfigKey    contextKey = "config"
	RequestIDKey contextKey = "request_id"
)

// Token returns the raw bearer token of the request, if any.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkedProviders(t *testing.T) {
	hash := "$2a$04$hash"
	google := ProviderGoogle
	subject := "sub-1"
	empty := ""

	tests := []struct {
		name string
		user User
		want []string
	}{
		{"local", User{PasswordHash: &hash}, []string{"email"}},
		{"federated", User{Provider: &google, SubjectID: &subject}, []string{"google"}},
		{"merged", User{PasswordHash: &hash, Provider: &google, SubjectID: &subject}, []string{"email", "google"}},
		{"empty hash", User{PasswordHash: &empty}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.LinkedProviders())
		})
	}
}

func TestDefaultPreferences(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := DefaultPreferences("user-1", now)

	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "en", p.Language)
	assert.True(t, p.NotificationsEnabled)
	assert.True(t, p.EmailNotifications)
	assert.Equal(t, now, p.CreatedAt)
}

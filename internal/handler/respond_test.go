package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/templui/authcore/internal/service"
)

func TestWriteServiceErrorHidesCauses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			"validation detail is kept",
			service.InvalidInput("name is required"),
			http.StatusBadRequest,
			`{"error":"name is required","code":"invalid_input"}`,
		},
		{
			"upstream cause is hidden",
			fmt.Errorf("lookup email: %w: dial tcp 10.0.0.1:5432: i/o timeout", service.ErrUpstreamUnavailable),
			http.StatusServiceUnavailable,
			`{"error":"Service temporarily unavailable, please try again","code":"upstream_unavailable"}`,
		},
		{
			"unknown error",
			errors.New("pq: relation users does not exist"),
			http.StatusInternalServerError,
			`{"error":"Internal server error","code":"internal"}`,
		},
		{
			"expired token",
			service.ErrTokenExpired,
			http.StatusUnauthorized,
			`{"error":"Token has expired","code":"token_expired"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var req loginRequest

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.co","password":"x","admin":true}`))
	assert.False(t, decodeJSON(rec, r, &req))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
	assert.True(t, decodeJSON(rec, r, &req))
	assert.Equal(t, "a@b.co", req.Email)
}

type failingPinger struct{ err error }

func (p failingPinger) PingContext(_ context.Context) error { return p.err }

func TestHealthUnhealthy(t *testing.T) {
	h := NewHealthHandler(failingPinger{err: errors.New("connection refused")}, "authcore")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","service":"authcore"}`, rec.Body.String())
}

package service

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAlreadyExists       = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDeactivated  = errors.New("account is deactivated")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrNotFound            = errors.New("user not found")
	ErrUpstreamUnavailable = errors.New("service temporarily unavailable")
	ErrInternal            = errors.New("internal error")
)

// kinds lists every error the facade may return, most specific first.
var kinds = []struct {
	err    error
	code   string
	status int
}{
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{ErrAlreadyExists, "already_exists", http.StatusConflict},
	{ErrInvalidCredentials, "invalid_credentials", http.StatusUnauthorized},
	{ErrAccountDeactivated, "account_deactivated", http.StatusForbidden},
	{ErrTokenInvalid, "token_invalid", http.StatusUnauthorized},
	{ErrTokenExpired, "token_expired", http.StatusUnauthorized},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrUpstreamUnavailable, "upstream_unavailable", http.StatusServiceUnavailable},
	{ErrInternal, "internal", http.StatusInternalServerError},
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// HTTPStatus returns the HTTP status that represents err.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsKnown reports whether err belongs to the public error set.
func IsKnown(err error) bool {
	return kindOf(err) != nil
}

// kindOf returns the bare sentinel err matches, or nil.
func kindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err
		}
	}
	return nil
}

// inputError is a validation failure whose message is safe to show callers.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Unwrap() error { return ErrInvalidInput }

// InvalidInput returns an error matching ErrInvalidInput that carries msg.
func InvalidInput(msg string) error {
	return &inputError{msg: msg}
}

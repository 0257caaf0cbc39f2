package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/authcore/internal/service"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error to its status and a message safe
// for clients. Only validation errors carry their detail.
func writeServiceError(w http.ResponseWriter, err error) {
	message := publicMessage(err)
	writeJSON(w, service.HTTPStatus(err), errorResponse{Error: message, Code: service.Code(err)})
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, service.ErrAlreadyExists):
		return "User with this email already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, service.ErrAccountDeactivated):
		return "Account is deactivated"
	case errors.Is(err, service.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, service.ErrTokenInvalid):
		return "Invalid token"
	case errors.Is(err, service.ErrNotFound):
		return "User not found"
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return "Service temporarily unavailable, please try again"
	default:
		return "Internal server error"
	}
}

// decodeJSON reads a JSON body into v. It writes a 400 and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body", Code: "invalid_input"})
		return false
	}
	return true
}

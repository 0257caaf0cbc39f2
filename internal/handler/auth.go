package handler

import (
	"net/http"
	"time"

	"github.com/templui/authcore/internal/ctxkeys"
	"github.com/templui/authcore/internal/model"
	"github.com/templui/authcore/internal/service"
)

type authHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *authHandler {
	return &authHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is a user as returned to clients.
type userResponse struct {
	*model.User
	LinkedProviders []string `json:"linked_providers"`
}

func newUserResponse(user *model.User) userResponse {
	providers := user.LinkedProviders()
	if providers == nil {
		providers = []string{}
	}
	return userResponse{User: user, LinkedProviders: providers}
}

type sessionResponse struct {
	Message     string               `json:"message"`
	User        userResponse         `json:"user"`
	AccessToken string               `json:"access_token"`
	ExpiresAt   time.Time            `json:"expires_at"`
	Resolution  model.ResolutionCase `json:"resolution,omitempty"`
}

func newSessionResponse(message string, session *service.Session) sessionResponse {
	return sessionResponse{
		Message:     message,
		User:        newUserResponse(session.User),
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
		Resolution:  session.Resolution,
	}
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse("User registered successfully", session))
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Email and password are required", Code: "invalid_input"})
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse("Login successful", session))
}

// Logout acknowledges the request. Tokens are stateless, so clients drop them.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.authService.Logout(r.Context(), ctxkeys.Token(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

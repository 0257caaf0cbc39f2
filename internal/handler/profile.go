package handler

import (
	"net/http"

	"github.com/templui/authcore/internal/ctxkeys"
	"github.com/templui/authcore/internal/service"
)

type profileHandler struct {
	authService *service.AuthService
}

func NewProfileHandler(authService *service.AuthService) *profileHandler {
	return &profileHandler{authService: authService}
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (h *profileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetProfile(r.Context(), ctxkeys.Token(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

func (h *profileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), ctxkeys.Token(r.Context()), service.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    newUserResponse(user),
	})
}

func (h *profileHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.authService.Preferences(r.Context(), ctxkeys.Token(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"preferences": prefs})
}

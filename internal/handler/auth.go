package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"stocktrack-api/internal/model"
	"stocktrack-api/internal/service"
	"stocktrack-api/pkg/apierror"
	"stocktrack-api/pkg/response"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email"`
	LoginKey string `json:"login_key"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.LoginKey == "" {
		response.Error(w, apierror.ValidationError("email and login_key are required"))
		return
	}

	token, user, err := h.sessions.Login(r.Context(), req.Email, req.LoginKey)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}

	response.OK(w, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if token == "" {
		response.Error(w, apierror.BadRequest("no session token supplied"))
		return
	}

	if err := h.sessions.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke session"))
		return
	}

	response.OK(w, map[string]string{"message": "Session revoked"})
}

package handler

import (
	"net/http"

	"stocktrack-api/internal/repository"
	"stocktrack-api/pkg/response"
)

// UserHandler exposes the user directory to admins.
type UserHandler struct {
	store repository.Store
}

// NewUserHandler creates a new user handler.
func NewUserHandler(store repository.Store) *UserHandler {
	return &UserHandler{store: store}
}

// List handles GET /api/v1/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, users)
}

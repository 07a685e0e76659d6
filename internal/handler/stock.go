package handler

import (
	"encoding/json"
	"net/http"

	"stocktrack-api/internal/middleware"
	"stocktrack-api/internal/service"
	"stocktrack-api/pkg/apierror"
	"stocktrack-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// StockHandler handles stock item (inbound) HTTP requests.
type StockHandler struct {
	reconcile *service.ReconcileService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(reconcile *service.ReconcileService) *StockHandler {
	return &StockHandler{reconcile: reconcile}
}

// Create handles POST /api/v1/stock-items
func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateStockItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	if err := in.Validate(); err != nil {
		response.Error(w, apierror.ValidationError(err.Error()))
		return
	}

	if session := middleware.GetSession(r.Context()); session != nil {
		in.CreatedBy = session.Email
	}

	item, err := h.reconcile.CreateStockItem(r.Context(), in)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.Created(w, item)
}

// List handles GET /api/v1/stock-items
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.reconcile.ListStockItems(r.Context())
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, items)
}

// Get handles GET /api/v1/stock-items/{id}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	item, err := h.reconcile.GetStockItem(r.Context(), id)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, item)
}

// Approve handles POST /api/v1/stock-items/{id}/approve
func (h *StockHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorEmail(r)

	item, err := h.reconcile.ApproveStockItem(r.Context(), id, actor)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, item)
}

// Reject handles POST /api/v1/stock-items/{id}/reject
func (h *StockHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorEmail(r)

	item, err := h.reconcile.RejectStockItem(r.Context(), id, actor)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, item)
}

// Delete handles DELETE /api/v1/stock-items/{id}
func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.reconcile.DeleteStockItem(r.Context(), id); err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.NoContent(w)
}

// actorEmail resolves the acting user's email from the session, falling
// back to a generic label for direct API access.
func actorEmail(r *http.Request) string {
	if session := middleware.GetSession(r.Context()); session != nil && session.Email != "" {
		return session.Email
	}
	return "Admin"
}

package handler

import (
	"encoding/json"
	"net/http"

	"stocktrack-api/internal/middleware"
	"stocktrack-api/internal/model"
	"stocktrack-api/internal/service"
	"stocktrack-api/pkg/apierror"
	"stocktrack-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// OutboundHandler handles outbound request HTTP requests.
type OutboundHandler struct {
	reconcile *service.ReconcileService
}

// NewOutboundHandler creates a new outbound handler.
func NewOutboundHandler(reconcile *service.ReconcileService) *OutboundHandler {
	return &OutboundHandler{reconcile: reconcile}
}

// createOutboundResponse pairs the created request with the
// notification delivery summary.
type createOutboundResponse struct {
	Request       *model.OutboundRequest `json:"request"`
	Notifications model.DispatchSummary  `json:"notifications"`
	Message       string                 `json:"message"`
}

// Create handles POST /api/v1/outbound-requests
func (h *OutboundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateOutboundInput
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

	req, summary, err := h.reconcile.CreateOutbound(r.Context(), in)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}

	response.Created(w, createOutboundResponse{
		Request:       req,
		Notifications: summary,
		Message:       summary.Summary(),
	})
}

// List handles GET /api/v1/outbound-requests
func (h *OutboundHandler) List(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.reconcile.ListOutbound(r.Context())
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, reqs)
}

// Get handles GET /api/v1/outbound-requests/{id}
func (h *OutboundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	req, err := h.reconcile.GetOutbound(r.Context(), id)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, req)
}

// Approve handles POST /api/v1/outbound-requests/{id}/approve
func (h *OutboundHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorEmail(r)

	req, err := h.reconcile.ApproveOutbound(r.Context(), id, actor)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, req)
}

// Reject handles POST /api/v1/outbound-requests/{id}/reject
func (h *OutboundHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorEmail(r)

	req, err := h.reconcile.RejectOutbound(r.Context(), id, actor)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, req)
}

// Delete handles DELETE /api/v1/outbound-requests/{id}
func (h *OutboundHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.reconcile.DeleteOutbound(r.Context(), id); err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.NoContent(w)
}

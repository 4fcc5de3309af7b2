package status

import (
	"net/http"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for status transitions.
type Handler struct {
	engine    *Engine
	validator *validator.Validate
}

// NewHandler creates a new status handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{
		engine:    engine,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the status transition route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Patch("/services/{id}", h.ChangeStatus)
}

// ChangeStatusRequest represents the request body for a status transition.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=2000"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrReasonRequired, Status: http.StatusBadRequest},
	{Error: ErrNoChange, Status: http.StatusBadRequest},
	{Error: ErrConcurrentModification, Status: http.StatusConflict},
}

// ChangeStatus handles PATCH /services/{id} request.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	service, err := h.engine.ChangeStatus(r.Context(), httputil.GetCompanyID(r.Context()), chi.URLParam(r, "id"), ChangeStatusInput{
		Status:    domain.ServiceStatus(req.Status),
		Reason:    req.Reason,
		ChangedBy: httputil.GetUserID(r.Context()),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

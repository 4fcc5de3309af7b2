package incidents

import (
	"net/http"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Pagination constants.
const (
	DefaultLogLimit    = 50
	MaxLogLimit        = 100
	DefaultEventsLimit = 10
	MaxEventsLimit     = 100
)

// Handler handles HTTP requests for incident history.
type Handler struct {
	service *Service
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers incident history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services/{id}/logs", h.ListServiceLogs)
	r.Get("/events", h.ListEvents)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: catalog.ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: httputil.ErrInvalidLimit, Status: http.StatusBadRequest},
	{Error: httputil.ErrInvalidOffset, Status: http.StatusBadRequest},
}

// ListServiceLogs handles GET /services/{id}/logs request.
func (h *Handler) ListServiceLogs(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, DefaultLogLimit, MaxLogLimit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	logs, err := h.service.ListServiceLogs(r.Context(), httputil.GetCompanyID(r.Context()), chi.URLParam(r, "id"), page)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, logs)
}

// ListEvents handles GET /events request.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, DefaultEventsLimit, MaxEventsLimit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	events, err := h.service.RecentEvents(r.Context(), httputil.GetCompanyID(r.Context()), page.Limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, events)
}

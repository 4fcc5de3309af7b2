package statuspage

import (
	"net/http"

	"github.com/bissquit/statusboard/internal/identity"
	"github.com/bissquit/statusboard/internal/incidents"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/bissquit/statusboard/internal/uptime"
	"github.com/go-chi/chi/v5"
)

// Handler handles public status page requests.
type Handler struct {
	service *Service
	limiter *httputil.RateLimiter
}

// NewHandler creates a new status page handler. limiter may be nil.
func NewHandler(service *Service, limiter *httputil.RateLimiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// RegisterPublicRoutes registers unauthenticated status page routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Get("/services/public", h.GetPage)
		r.Get("/services/events/public", h.ListEvents)
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: identity.ErrCompanyNotFound, Status: http.StatusNotFound},
	{Error: uptime.ErrInvalidWindow, Status: http.StatusBadRequest},
	{Error: httputil.ErrInvalidLimit, Status: http.StatusBadRequest},
	{Error: httputil.ErrInvalidOffset, Status: http.StatusBadRequest},
}

// GetPage handles GET /services/public request.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("companyId")
	if companyID == "" {
		httputil.Error(w, http.StatusBadRequest, "companyId is required")
		return
	}

	windowHours, ok := uptime.ParseWindowHours(w, r)
	if !ok {
		return
	}

	page, err := h.service.GetPage(r.Context(), companyID, windowHours)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, page)
}

// ListEvents handles GET /services/events/public request.
// Without a limit the whole history is returned.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("companyId")
	if companyID == "" {
		httputil.Error(w, http.StatusBadRequest, "companyId is required")
		return
	}

	page, err := httputil.ParsePagination(r, 0, incidents.MaxEventsLimit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	events, err := h.service.ListEvents(r.Context(), companyID, page)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, events)
}

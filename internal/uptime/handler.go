package uptime

import (
	"net/http"
	"strconv"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for uptime reports.
type Handler struct {
	aggregator *Aggregator
}

// NewHandler creates a new uptime handler.
func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// RegisterRoutes registers uptime routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services/{id}/uptime", h.GetUptime)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: catalog.ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidWindow, Status: http.StatusBadRequest},
}

// GetUptime handles GET /services/{id}/uptime request.
func (h *Handler) GetUptime(w http.ResponseWriter, r *http.Request) {
	windowHours, ok := ParseWindowHours(w, r)
	if !ok {
		return
	}

	report, err := h.aggregator.ComputeUptime(r.Context(), httputil.GetCompanyID(r.Context()), chi.URLParam(r, "id"), windowHours)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, report)
}

// ParseWindowHours reads the optional window_hours query parameter.
// On a malformed value it writes a 400 response and returns false.
func ParseWindowHours(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("window_hours")
	if raw == "" {
		return 0, true
	}

	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 {
		httputil.Error(w, http.StatusBadRequest, "window_hours must be a positive integer")
		return 0, false
	}
	if hours > MaxWindowHours {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidWindow.Error())
		return 0, false
	}
	return hours, true
}

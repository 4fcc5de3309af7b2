package catalog

import (
	"net/http"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the service CRUD routes.
// Routes are flat so other modules can attach methods to /services/{id}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services", h.ListServices)
	r.Post("/services", h.CreateService)
	r.Get("/services/{id}", h.GetService)
	r.Put("/services/{id}", h.UpdateService)
	r.Delete("/services/{id}", h.DeleteService)
}

// CreateServiceRequest represents the request body for creating a service.
type CreateServiceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateServiceRequest represents the request body for updating a service.
type UpdateServiceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrNameRequired, Status: http.StatusBadRequest},
}

// CreateService handles POST /services request.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	service, err := h.service.CreateService(r.Context(), httputil.GetCompanyID(r.Context()), CreateServiceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, service)
}

// GetService handles GET /services/{id} request.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), httputil.GetCompanyID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// ListServices handles GET /services request.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	filter := ServiceFilter{}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.ServiceStatus(status)
		filter.Status = &s
	}

	if r.URL.Query().Get("include_deleted") == "true" {
		filter.IncludeDeleted = true
	}

	services, err := h.service.ListServices(r.Context(), httputil.GetCompanyID(r.Context()), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, services)
}

// UpdateService handles PUT /services/{id} request.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req UpdateServiceRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	service, err := h.service.UpdateService(r.Context(), httputil.GetCompanyID(r.Context()), chi.URLParam(r, "id"), UpdateServiceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// DeleteService handles DELETE /services/{id} request.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteService(r.Context(), httputil.GetCompanyID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.NoContent(w)
}

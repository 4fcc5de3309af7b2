package identity

import (
	"net/http"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers public identity routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Get("/company", h.GetCompany)
	r.Get("/users", h.ListUsers)
}

// RegisterAdminRoutes registers routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/company", h.UpdateCompany)
	r.Post("/users/invite", h.InviteUser)
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	CompanyName string `json:"company_name" validate:"required,min=1,max=255"`
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// InviteRequest represents the request body for inviting a user.
type InviteRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=member admin"`
}

// CompanySettingsRequest represents editable notification settings.
type CompanySettingsRequest struct {
	MattermostWebhookURL string `json:"mattermost_webhook_url" validate:"omitempty,url"`
	SlackWebhookURL      string `json:"slack_webhook_url" validate:"omitempty,url"`
}

// UpdateCompanyRequest represents the request body for updating the company.
type UpdateCompanyRequest struct {
	Name     string                 `json:"name" validate:"required,min=1,max=255"`
	Settings CompanySettingsRequest `json:"settings"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrCompanyNotFound, Status: http.StatusNotFound},
	{Error: ErrEmailExists, Status: http.StatusConflict},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized},
	{Error: ErrNameRequired, Status: http.StatusBadRequest},
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	registration, err := h.service.Register(r.Context(), RegisterInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, registration)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), LoginInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r.Context())
	if principal == nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetUser(r.Context(), principal.CompanyID, principal.UserID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), httputil.GetCompanyID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

// InviteUser handles POST /users/invite.
func (h *Handler) InviteUser(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	user, err := h.service.InviteUser(r.Context(), httputil.GetCompanyID(r.Context()), InviteInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// GetCompany handles GET /company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.GetCompany(r.Context(), httputil.GetCompanyID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, company)
}

// UpdateCompany handles PUT /company.
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req UpdateCompanyRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	company, err := h.service.UpdateCompany(r.Context(), httputil.GetCompanyID(r.Context()), UpdateCompanyInput{
		Name: req.Name,
		Settings: domain.CompanySettings{
			MattermostWebhookURL: req.Settings.MattermostWebhookURL,
			SlackWebhookURL:      req.Settings.SlackWebhookURL,
		},
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, company)
}

// Package identity manages companies, their users and authentication.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/sanitize"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccessToken is a signed bearer token.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Authenticator issues access tokens.
type Authenticator interface {
	IssueToken(user *domain.User) (*AccessToken, error)
}

// CompanyListener is notified after a company profile was updated.
type CompanyListener interface {
	CompanyChanged(companyID string)
}

// Service implements identity business logic.
type Service struct {
	repo     Repository
	auth     Authenticator
	listener CompanyListener
	hashCost int
}

// NewService creates a new identity service. listener may be nil.
func NewService(repo Repository, auth Authenticator, listener CompanyListener) *Service {
	return &Service{
		repo:     repo,
		auth:     auth,
		listener: listener,
		hashCost: bcrypt.DefaultCost,
	}
}

// RegisterInput holds data for registering a company with its first admin.
type RegisterInput struct {
	CompanyName string
	Name        string
	Email       string
	Password    string
}

// Registration is the result of a successful registration.
type Registration struct {
	User    *domain.User    `json:"user"`
	Company *domain.Company `json:"company"`
}

// Register creates a company and its first admin user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Registration, error) {
	companyName := sanitize.Text(input.CompanyName)
	userName := sanitize.Text(input.Name)
	if companyName == "" || userName == "" {
		return nil, ErrNameRequired
	}

	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	company := &domain.Company{
		AuditRecord: domain.AuditRecord{ID: uuid.NewString()},
		Name:        companyName,
	}
	admin := &domain.User{
		CompanyScoped: domain.CompanyScoped{
			AuditRecord: domain.AuditRecord{ID: uuid.NewString()},
			CompanyID:   company.ID,
		},
		Name:         userName,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}

	if err := s.repo.CreateCompanyWithAdmin(ctx, company, admin); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create company: %w", err)
	}

	return &Registration{User: admin, Company: company}, nil
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
		User:        user,
	}, nil
}

// GetUser returns a user of the company.
func (s *Service) GetUser(ctx context.Context, companyID, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, companyID, id)
}

// ListUsers returns all users of the company.
func (s *Service) ListUsers(ctx context.Context, companyID string) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, companyID)
}

// InviteInput holds data for adding a user to an existing company.
type InviteInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// InviteUser adds a user to the company. The role defaults to member.
func (s *Service) InviteUser(ctx context.Context, companyID string, input InviteInput) (*domain.User, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleMember
	}

	user := &domain.User{
		CompanyScoped: domain.CompanyScoped{
			AuditRecord: domain.AuditRecord{ID: uuid.NewString()},
			CompanyID:   companyID,
		},
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetCompany returns a company by id.
func (s *Service) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// UpdateCompanyInput holds the editable company fields.
type UpdateCompanyInput struct {
	Name     string
	Settings domain.CompanySettings
}

// UpdateCompany updates the company name and notification settings.
func (s *Service) UpdateCompany(ctx context.Context, id string, input UpdateCompanyInput) (*domain.Company, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}

	company.Name = name
	company.Settings = domain.CompanySettings{
		MattermostWebhookURL: strings.TrimSpace(input.Settings.MattermostWebhookURL),
		SlackWebhookURL:      strings.TrimSpace(input.Settings.SlackWebhookURL),
	}

	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}

	if s.listener != nil {
		s.listener.CompanyChanged(company.ID)
	}
	return company, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailExists
	case errors.Is(err, ErrUserNotFound):
		return nil
	}
	return fmt.Errorf("check email: %w", err)
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Package catalog manages the services a company exposes on its status page.
package catalog

import (
	"context"
	"fmt"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/sanitize"
	"github.com/google/uuid"
)

// ChangeListener is notified after a company's services were mutated.
type ChangeListener interface {
	ServicesChanged(companyID string)
}

// Service implements service catalog business logic.
type Service struct {
	repo     Repository
	listener ChangeListener
}

// NewService creates a new catalog service. listener may be nil.
func NewService(repo Repository, listener ChangeListener) *Service {
	return &Service{repo: repo, listener: listener}
}

// CreateServiceInput holds data for creating a service.
type CreateServiceInput struct {
	Name        string
	Description string
}

// CreateService creates a new operational service for the company.
func (s *Service) CreateService(ctx context.Context, companyID string, input CreateServiceInput) (*domain.Service, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	service := &domain.Service{
		CompanyScoped: domain.CompanyScoped{
			AuditRecord: domain.AuditRecord{ID: uuid.NewString()},
			CompanyID:   companyID,
		},
		Name:        name,
		Description: sanitize.Text(input.Description),
		Status:      domain.ServiceStatusOperational,
	}

	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.notifyChanged(companyID)
	return service, nil
}

// GetService returns a non-deleted service of the company.
func (s *Service) GetService(ctx context.Context, companyID, id string) (*domain.Service, error) {
	return s.repo.GetService(ctx, companyID, id)
}

// ListServices returns the company's services.
func (s *Service) ListServices(ctx context.Context, companyID string, filter ServiceFilter) ([]domain.Service, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListServices(ctx, companyID, filter)
}

// UpdateServiceInput holds the mutable descriptive fields of a service.
// Status is deliberately absent: it only changes through the status engine.
type UpdateServiceInput struct {
	Name        string
	Description string
}

// UpdateService updates a service's name and description.
func (s *Service) UpdateService(ctx context.Context, companyID, id string, input UpdateServiceInput) (*domain.Service, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	service, err := s.repo.GetService(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	service.Name = name
	service.Description = sanitize.Text(input.Description)

	if err := s.repo.UpdateService(ctx, service); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}

	s.notifyChanged(companyID)
	return service, nil
}

// DeleteService soft-deletes a service. Its incident history is kept.
func (s *Service) DeleteService(ctx context.Context, companyID, id string) error {
	if err := s.repo.DeleteService(ctx, companyID, id); err != nil {
		return err
	}
	s.notifyChanged(companyID)
	return nil
}

func (s *Service) notifyChanged(companyID string) {
	if s.listener != nil {
		s.listener.ServicesChanged(companyID)
	}
}

// Package incidents stores and serves the incident history of services.
package incidents

import (
	"context"
	"fmt"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
)

// ServiceReader resolves a tenant's service, failing when it does not exist.
type ServiceReader interface {
	GetService(ctx context.Context, companyID, id string) (*domain.Service, error)
}

// Service implements incident history queries.
type Service struct {
	repo     Repository
	services ServiceReader
}

// NewService creates a new incidents service.
func NewService(repo Repository, services ServiceReader) *Service {
	return &Service{repo: repo, services: services}
}

// ServiceLogs is a page of a service's incident history.
type ServiceLogs struct {
	Logs   []domain.IncidentLog `json:"logs"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListServiceLogs returns a page of a service's incident logs, newest first.
func (s *Service) ListServiceLogs(ctx context.Context, companyID, serviceID string, page httputil.Pagination) (*ServiceLogs, error) {
	if _, err := s.services.GetService(ctx, companyID, serviceID); err != nil {
		return nil, err
	}

	logs, err := s.repo.ListLogsByService(ctx, companyID, serviceID, LogFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list service logs: %w", err)
	}

	total, err := s.repo.CountLogsByService(ctx, companyID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("count service logs: %w", err)
	}

	return &ServiceLogs{
		Logs:   logs,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

// CompanyEvents is a page of a company's incident history.
// A zero Limit means the page runs to the end of the history.
type CompanyEvents struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// ListCompanyEvents returns a company's incident history across all services, newest first.
func (s *Service) ListCompanyEvents(ctx context.Context, companyID string, page httputil.Pagination) (*CompanyEvents, error) {
	events, err := s.repo.ListLogsByCompany(ctx, companyID, LogFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list company events: %w", err)
	}

	total, err := s.repo.CountLogsByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("count company events: %w", err)
	}

	return &CompanyEvents{
		Events: events,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

// RecentEvents returns the company's most recent incident logs across all services.
func (s *Service) RecentEvents(ctx context.Context, companyID string, limit int) ([]Event, error) {
	events, err := s.repo.ListLogsByCompany(ctx, companyID, LogFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list company events: %w", err)
	}
	return events, nil
}

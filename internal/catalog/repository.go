package catalog

import (
	"context"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for service data operations.
// Every method is scoped to a single company.
type Repository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetService(ctx context.Context, companyID, id string) (*domain.Service, error)
	ListServices(ctx context.Context, companyID string, filter ServiceFilter) ([]domain.Service, error)
	UpdateService(ctx context.Context, service *domain.Service) error
	DeleteService(ctx context.Context, companyID, id string) error

	// Transaction methods
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetServiceForUpdateTx(ctx context.Context, tx pgx.Tx, companyID, id string) (*domain.Service, error)
	UpdateServiceStatusTx(ctx context.Context, tx pgx.Tx, service *domain.Service, expected domain.ServiceStatus) error
}

// ServiceFilter represents filter criteria for listing services.
type ServiceFilter struct {
	Status         *domain.ServiceStatus
	IncludeDeleted bool
}

package incidents

import (
	"context"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident log data operations.
// Logs are append-only: they are created and closed, never deleted.
type Repository interface {
	// Transaction methods, used by the status engine.
	CreateLogTx(ctx context.Context, tx pgx.Tx, log *domain.IncidentLog) error
	GetOpenLogTx(ctx context.Context, tx pgx.Tx, companyID, serviceID string) (*domain.IncidentLog, error)
	CloseLogTx(ctx context.Context, tx pgx.Tx, log *domain.IncidentLog, finishedAt time.Time) error

	ListLogsByService(ctx context.Context, companyID, serviceID string, filter LogFilter) ([]domain.IncidentLog, error)
	CountLogsByService(ctx context.Context, companyID, serviceID string) (int, error)
	ListLogsByCompany(ctx context.Context, companyID string, filter LogFilter) ([]Event, error)
	CountLogsByCompany(ctx context.Context, companyID string) (int, error)
}

// LogFilter represents filter criteria for listing incident logs.
// A zero Limit means no limit.
type LogFilter struct {
	// Since keeps only logs still open or finished after this instant.
	Since  *time.Time
	Limit  int
	Offset int
}

// Event is an incident log enriched with the name of its service.
type Event struct {
	domain.IncidentLog
	ServiceName string `json:"service_name"`
}

// Package status owns service status transitions and the incident logs they produce.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/incidents"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/bissquit/statusboard/internal/pkg/postgres"
	"github.com/bissquit/statusboard/internal/pkg/sanitize"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ServiceStore is the part of the service store the engine writes through.
type ServiceStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetServiceForUpdateTx(ctx context.Context, tx pgx.Tx, companyID, id string) (*domain.Service, error)
	UpdateServiceStatusTx(ctx context.Context, tx pgx.Tx, service *domain.Service, expected domain.ServiceStatus) error
}

// LogStore is the part of the incident log store the engine writes through.
type LogStore interface {
	CreateLogTx(ctx context.Context, tx pgx.Tx, log *domain.IncidentLog) error
	GetOpenLogTx(ctx context.Context, tx pgx.Tx, companyID, serviceID string) (*domain.IncidentLog, error)
	CloseLogTx(ctx context.Context, tx pgx.Tx, log *domain.IncidentLog, finishedAt time.Time) error
}

// Transition describes a committed status change.
type Transition struct {
	Service   domain.Service
	From      domain.ServiceStatus
	To        domain.ServiceStatus
	Reason    string
	ChangedBy string
	At        time.Time
	// Opened is the incident log created by the transition, if any.
	Opened *domain.IncidentLog
	// Closed is the incident log finished by the transition, if any.
	Closed *domain.IncidentLog
}

// ChangeNotifier is told about every committed transition.
type ChangeNotifier interface {
	OnStatusChanged(ctx context.Context, t Transition) error
}

// ChangeStatusInput holds the requested transition.
type ChangeStatusInput struct {
	Status    domain.ServiceStatus
	Reason    string
	ChangedBy string
}

// Engine applies status transitions.
type Engine struct {
	services  ServiceStore
	logs      LogStore
	notifiers []ChangeNotifier
	now       func() time.Time
}

// NewEngine creates a new status engine.
func NewEngine(services ServiceStore, logs LogStore, notifiers ...ChangeNotifier) *Engine {
	return &Engine{
		services:  services,
		logs:      logs,
		notifiers: notifiers,
		now:       time.Now,
	}
}

// ChangeStatus moves a service to a new status and records the matching incident log
// changes. The service row and its logs are written in one transaction:
//
//   - operational to degraded opens a log and requires a reason;
//   - degraded to operational closes the open log;
//   - degraded to another degraded status closes the open log and opens a new one at
//     the same instant, reusing the previous reason when none is given.
func (e *Engine) ChangeStatus(ctx context.Context, companyID, serviceID string, input ChangeStatusInput) (result *domain.Service, err error) {
	from := domain.ServiceStatus("unknown")
	defer func() {
		to := input.Status
		if !to.IsValid() {
			to = "invalid"
		}
		metrics.StatusTransitions.WithLabelValues(string(from), string(to), resultLabel(err)).Inc()
	}()

	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	reason := sanitize.Text(input.Reason)

	tx, err := e.services.BeginTx(ctx)
	if err != nil {
		return nil, persistence("begin transaction", err)
	}
	defer postgres.Rollback(ctx, tx)

	service, err := e.services.GetServiceForUpdateTx(ctx, tx, companyID, serviceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, persistence("load service", err)
	}
	from = service.Status

	if from == input.Status {
		return nil, ErrNoChange
	}

	now := e.now().UTC()
	t := Transition{
		From:      from,
		To:        input.Status,
		ChangedBy: input.ChangedBy,
		At:        now,
	}

	var open *domain.IncidentLog
	if from.IsDegraded() {
		open, err = e.logs.GetOpenLogTx(ctx, tx, companyID, serviceID)
		if err != nil && !errors.Is(err, incidents.ErrLogNotFound) {
			return nil, persistence("load open incident", err)
		}
	}

	if input.Status.IsDegraded() && reason == "" && open != nil {
		reason = open.Reason
	}
	if input.Status.IsDegraded() && reason == "" {
		return nil, ErrReasonRequired
	}

	if open != nil {
		if err := e.logs.CloseLogTx(ctx, tx, open, now); err != nil {
			return nil, storeError("close incident", err)
		}
		t.Closed = open
	}

	if input.Status.IsDegraded() {
		log := &domain.IncidentLog{
			CompanyScoped: domain.CompanyScoped{
				AuditRecord: domain.AuditRecord{ID: uuid.NewString()},
				CompanyID:   companyID,
			},
			ServiceID: serviceID,
			StartedAt: now,
			Reason:    reason,
			Status:    input.Status,
		}
		if err := e.logs.CreateLogTx(ctx, tx, log); err != nil {
			return nil, storeError("open incident", err)
		}
		t.Opened = log
	}

	service.Status = input.Status
	if err := e.services.UpdateServiceStatusTx(ctx, tx, service, from); err != nil {
		return nil, storeError("update service status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence("commit", err)
	}

	t.Service = *service
	t.Reason = reason
	e.afterCommit(ctx, t)

	return service, nil
}

func (e *Engine) afterCommit(ctx context.Context, t Transition) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("service status changed",
		"service_id", t.Service.ID,
		"from", t.From,
		"to", t.To,
	)

	for _, n := range e.notifiers {
		if err := n.OnStatusChanged(ctx, t); err != nil {
			logger.Error("status change notification failed", "service_id", t.Service.ID, "error", err)
		}
	}
}

// storeError maps store conflicts to ErrConcurrentModification and wraps everything else.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrStatusChanged),
		errors.Is(err, incidents.ErrOpenLogExists),
		errors.Is(err, incidents.ErrLogNotFound):
		return ErrConcurrentModification
	case errors.Is(err, catalog.ErrServiceNotFound):
		return ErrServiceNotFound
	}
	return persistence(op, err)
}

func resultLabel(err error) string {
	var pe *PersistenceError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoChange):
		return "no_change"
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrReasonRequired):
		return "invalid"
	case errors.Is(err, ErrServiceNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentModification):
		return "conflict"
	case errors.As(err, &pe):
		return "persistence_error"
	}
	return "error"
}

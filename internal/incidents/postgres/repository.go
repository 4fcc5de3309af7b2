// Package postgres provides PostgreSQL implementation of the incident log repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/incidents"
	pgutil "github.com/bissquit/statusboard/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	logColumns = `l.id, l.company_id, l.service_id, l.started_at, l.finished_at, l.reason, l.status,
		l.created_at, l.updated_at, l.deleted_at`

	openLogIndex = "incident_logs_one_open_per_service"
)

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateLogTx inserts a new incident log within a transaction.
func (r *Repository) CreateLogTx(ctx context.Context, tx pgx.Tx, log *domain.IncidentLog) error {
	query := `
		INSERT INTO incident_logs (id, company_id, service_id, started_at, finished_at, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := tx.QueryRow(ctx, query,
		log.ID,
		log.CompanyID,
		log.ServiceID,
		log.StartedAt,
		log.FinishedAt,
		log.Reason,
		log.Status,
	).Scan(&log.CreatedAt, &log.UpdatedAt)

	if err != nil {
		if pgutil.IsUniqueViolation(err, openLogIndex) {
			return incidents.ErrOpenLogExists
		}
		return fmt.Errorf("create incident log: %w", err)
	}
	return nil
}

// GetOpenLogTx returns the ongoing incident of a service within a transaction.
func (r *Repository) GetOpenLogTx(ctx context.Context, tx pgx.Tx, companyID, serviceID string) (*domain.IncidentLog, error) {
	query := `SELECT ` + logColumns + `
		FROM incident_logs l
		WHERE l.company_id = $1 AND l.service_id = $2 AND l.finished_at IS NULL
		FOR UPDATE
	`
	log, err := scanLog(tx.QueryRow(ctx, query, companyID, serviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrLogNotFound
		}
		return nil, fmt.Errorf("get open incident log: %w", err)
	}
	return log, nil
}

// CloseLogTx sets finished_at on an open incident log within a transaction.
func (r *Repository) CloseLogTx(ctx context.Context, tx pgx.Tx, log *domain.IncidentLog, finishedAt time.Time) error {
	query := `
		UPDATE incident_logs
		SET finished_at = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND finished_at IS NULL
		RETURNING finished_at, updated_at
	`
	err := tx.QueryRow(ctx, query, log.ID, log.CompanyID, finishedAt).Scan(&log.FinishedAt, &log.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrLogNotFound
		}
		return fmt.Errorf("close incident log: %w", err)
	}
	return nil
}

// ListLogsByService returns a service's incident logs, newest first.
func (r *Repository) ListLogsByService(ctx context.Context, companyID, serviceID string, filter incidents.LogFilter) ([]domain.IncidentLog, error) {
	query := `SELECT ` + logColumns + `
		FROM incident_logs l
		WHERE l.company_id = $1 AND l.service_id = $2`
	args := []interface{}{companyID, serviceID}

	query, args = applyFilter(query, args, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incident logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.IncidentLog, 0)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident log: %w", err)
		}
		logs = append(logs, *log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident logs: %w", err)
	}

	return logs, nil
}

// CountLogsByService returns the number of incident logs recorded for a service.
func (r *Repository) CountLogsByService(ctx context.Context, companyID, serviceID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM incident_logs WHERE company_id = $1 AND service_id = $2`,
		companyID, serviceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count incident logs: %w", err)
	}
	return count, nil
}

// CountOpenLogs returns the number of open incident logs across all companies.
func (r *Repository) CountOpenLogs(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM incident_logs WHERE finished_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open incident logs: %w", err)
	}
	return count, nil
}

// CountLogsByCompany returns the number of incident logs recorded for a company.
func (r *Repository) CountLogsByCompany(ctx context.Context, companyID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM incident_logs WHERE company_id = $1`,
		companyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count company incident logs: %w", err)
	}
	return count, nil
}

// ListLogsByCompany returns incident logs of all the company's services, newest first.
// Logs of deleted services are kept in the feed.
func (r *Repository) ListLogsByCompany(ctx context.Context, companyID string, filter incidents.LogFilter) ([]incidents.Event, error) {
	query := `SELECT ` + logColumns + `, s.name
		FROM incident_logs l
		JOIN services s ON s.id = l.service_id
		WHERE l.company_id = $1`
	args := []interface{}{companyID}

	query, args = applyFilter(query, args, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list company incident logs: %w", err)
	}
	defer rows.Close()

	events := make([]incidents.Event, 0)
	for rows.Next() {
		var e incidents.Event
		err := rows.Scan(
			&e.ID,
			&e.CompanyID,
			&e.ServiceID,
			&e.StartedAt,
			&e.FinishedAt,
			&e.Reason,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.DeletedAt,
			&e.ServiceName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident log: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident logs: %w", err)
	}

	return events, nil
}

func applyFilter(query string, args []interface{}, filter incidents.LogFilter) (string, []interface{}) {
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(" AND (l.finished_at IS NULL OR l.finished_at > $%d)", len(args))
	}

	query += " ORDER BY l.started_at DESC, l.created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}

func scanLog(row pgx.Row) (*domain.IncidentLog, error) {
	var log domain.IncidentLog
	err := row.Scan(
		&log.ID,
		&log.CompanyID,
		&log.ServiceID,
		&log.StartedAt,
		&log.FinishedAt,
		&log.Reason,
		&log.Status,
		&log.CreatedAt,
		&log.UpdatedAt,
		&log.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

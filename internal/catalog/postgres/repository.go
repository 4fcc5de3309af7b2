// Package postgres provides PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceColumns = `id, company_id, name, description, status, created_at, updated_at, deleted_at`

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateService creates a new service in the database.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service) error {
	query := `
		INSERT INTO services (id, company_id, name, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.ID,
		service.CompanyID,
		service.Name,
		service.Description,
		service.Status,
	).Scan(&service.CreatedAt, &service.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetService retrieves a non-deleted service of the company by its ID.
func (r *Repository) GetService(ctx context.Context, companyID, id string) (*domain.Service, error) {
	if !isUUID(id) {
		return nil, catalog.ErrServiceNotFound
	}

	query := `SELECT ` + serviceColumns + `
		FROM services
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`
	service, err := scanService(r.db.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return service, nil
}

// ListServices retrieves the company's services ordered by name.
func (r *Repository) ListServices(ctx context.Context, companyID string, filter catalog.ServiceFilter) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE company_id = $1`
	args := []interface{}{companyID}

	if !filter.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY name, created_at"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}

// UpdateService updates the descriptive fields of a service.
func (r *Repository) UpdateService(ctx context.Context, service *domain.Service) error {
	query := `
		UPDATE services
		SET name = $3, description = $4, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.ID,
		service.CompanyID,
		service.Name,
		service.Description,
	).Scan(&service.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// DeleteService marks a service as deleted.
func (r *Repository) DeleteService(ctx context.Context, companyID, id string) error {
	if !isUUID(id) {
		return catalog.ErrServiceNotFound
	}

	query := `
		UPDATE services
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return catalog.ErrServiceNotFound
	}
	return nil
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// GetServiceForUpdateTx reads a non-deleted service and locks its row until the transaction ends.
func (r *Repository) GetServiceForUpdateTx(ctx context.Context, tx pgx.Tx, companyID, id string) (*domain.Service, error) {
	if !isUUID(id) {
		return nil, catalog.ErrServiceNotFound
	}

	query := `SELECT ` + serviceColumns + `
		FROM services
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`
	service, err := scanService(tx.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service for update: %w", err)
	}
	return service, nil
}

// UpdateServiceStatusTx writes service.Status only if the stored status still equals expected.
func (r *Repository) UpdateServiceStatusTx(ctx context.Context, tx pgx.Tx, service *domain.Service, expected domain.ServiceStatus) error {
	query := `
		UPDATE services
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		service.ID,
		service.CompanyID,
		service.Status,
		expected,
	).Scan(&service.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrStatusChanged
		}
		return fmt.Errorf("update service status: %w", err)
	}
	return nil
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var service domain.Service
	err := row.Scan(
		&service.ID,
		&service.CompanyID,
		&service.Name,
		&service.Description,
		&service.Status,
		&service.CreatedAt,
		&service.UpdatedAt,
		&service.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

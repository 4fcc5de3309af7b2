// Package postgres provides PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/identity"
	pgutil "github.com/bissquit/statusboard/internal/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userColumns   = `id, company_id, name, email, password_hash, role, created_at, updated_at, deleted_at`
	emailIndex    = "users_email_key"
	insertUserSQL = `
		INSERT INTO users (id, company_id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
)

// Repository implements the identity.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateCompanyWithAdmin inserts a company and its first user in one transaction.
func (r *Repository) CreateCompanyWithAdmin(ctx context.Context, company *domain.Company, admin *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer pgutil.Rollback(ctx, tx)

	err = tx.QueryRow(ctx, `
		INSERT INTO companies (id, name, settings)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, company.ID, company.Name, company.Settings).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}

	if err := insertUser(ctx, tx, admin); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetCompany retrieves a non-deleted company by its ID.
func (r *Repository) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, identity.ErrCompanyNotFound
	}

	var company domain.Company
	err := r.db.QueryRow(ctx, `
		SELECT id, name, settings, created_at, updated_at, deleted_at
		FROM companies
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(
		&company.ID,
		&company.Name,
		&company.Settings,
		&company.CreatedAt,
		&company.UpdatedAt,
		&company.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &company, nil
}

// UpdateCompany updates a company's name and settings.
func (r *Repository) UpdateCompany(ctx context.Context, company *domain.Company) error {
	err := r.db.QueryRow(ctx, `
		UPDATE companies
		SET name = $2, settings = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`, company.ID, company.Name, company.Settings).Scan(&company.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrCompanyNotFound
		}
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}

// CreateUser inserts a user into an existing company.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, r.db, user)
}

// GetUserByID retrieves a non-deleted user of the company.
func (r *Repository) GetUserByID(ctx context.Context, companyID, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, identity.ErrUserNotFound
	}

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a non-deleted user by email, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers retrieves the company's users ordered by name.
func (r *Repository) ListUsers(ctx context.Context, companyID string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY name, email
	`
	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertUser(ctx context.Context, q queryRower, user *domain.User) error {
	err := q.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.CompanyID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err, emailIndex) {
			return identity.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

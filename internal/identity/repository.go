package identity

import (
	"context"

	"github.com/bissquit/statusboard/internal/domain"
)

// Repository defines the interface for company and user data operations.
type Repository interface {
	// CreateCompanyWithAdmin stores a new company and its first user atomically.
	CreateCompanyWithAdmin(ctx context.Context, company *domain.Company, admin *domain.User) error
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
	UpdateCompany(ctx context.Context, company *domain.Company) error

	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, companyID, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, companyID string) ([]domain.User, error)
}

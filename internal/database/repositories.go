package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/bacaltosclinic/portal-api/internal/models"
)

// UserRepositoryInterface defines the interface for user repository operations.
// This interface enables better testability by allowing mock implementations.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.UserRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*models.UserRecord, error)
	List(ctx context.Context, roleFilter *models.Role) ([]*models.UserRecord, error)
	Update(ctx context.Context, id uuid.UUID, email *string, role *models.Role) (*models.UserRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ensure the concrete type implements the interface
var _ UserRepositoryInterface = (*UserRepository)(nil)

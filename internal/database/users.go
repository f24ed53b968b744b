package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/bacaltosclinic/portal-api/internal/models"
)

// ErrNotFound is returned when no user row matches the query
var ErrNotFound = sql.ErrNoRows

// UserRepository handles user record database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user record. The id is the identity provider's id for this
// user, supplied by the caller; created_at is assigned by the database.
func (r *UserRepository) Create(ctx context.Context, user *models.UserRecord) error {
	query := `
		INSERT INTO users (id, email, role)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Role,
	).Scan(&user.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user record by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UserRecord, error) {
	user := &models.UserRecord{}
	query := `
		SELECT id, email, role, created_at
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user record by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	user := &models.UserRecord{}
	query := `
		SELECT id, email, role, created_at
		FROM users
		WHERE email = $1
	`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// List retrieves all user records ordered by creation time descending,
// optionally filtered to a single role. No pagination; the result set is
// unbounded.
func (r *UserRepository) List(ctx context.Context, roleFilter *models.Role) ([]*models.UserRecord, error) {
	query := `
		SELECT id, email, role, created_at
		FROM users
	`
	args := []any{}
	if roleFilter != nil {
		query += ` WHERE role = $1`
		args = append(args, *roleFilter)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.UserRecord{}
	for rows.Next() {
		user := &models.UserRecord{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Update applies a partial update (email and/or role) to a user record and
// returns the updated row. At least one field must be set.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, email *string, role *models.Role) (*models.UserRecord, error) {
	user := &models.UserRecord{}
	query := `
		UPDATE users
		SET email = COALESCE($2, email), role = COALESCE($3, role)
		WHERE id = $1
		RETURNING id, email, role, created_at
	`

	err := r.db.QueryRowContext(ctx, query, id, email, role).Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// Delete removes a user record by id
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}

	return nil
}

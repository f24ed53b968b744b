// Package provisioning coordinates user lifecycle across two stores: the
// managed identity provider (credentials, sessions) and the local users table
// (role, profile). The stores share no transaction, so create and delete are
// two-phase with a single best-effort compensating call per direction.
package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/database"
	"github.com/bacaltosclinic/portal-api/internal/identity"
	"github.com/bacaltosclinic/portal-api/internal/models"
	"github.com/bacaltosclinic/portal-api/internal/queue"
	"github.com/bacaltosclinic/portal-api/internal/validation"
)

// Coordinator orchestrates provisioning and deprovisioning of users that must
// exist consistently in the identity provider and the local record table.
type Coordinator struct {
	users     database.UserRepositoryInterface
	provider  identity.Provider
	publisher queue.Publisher
	logger    *zap.Logger
}

// New creates a coordinator. All dependencies are required; the audit
// publisher may be queue.NopPublisher{} when the stream is disabled.
func New(users database.UserRepositoryInterface, provider identity.Provider, publisher queue.Publisher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		users:     users,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
	}
}

// VerifyCaller resolves a bearer token via the identity provider and checks
// that the caller's record carries the admin role. Every mutation below calls
// this first and aborts before touching either store.
func (c *Coordinator) VerifyCaller(ctx context.Context, token string) (*models.Caller, error) {
	caller, err := c.resolveCaller(ctx, token)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, models.Forbidden("Admin access required")
	}
	return caller, nil
}

// resolveCaller resolves a token to its identity and joins the local record
func (c *Coordinator) resolveCaller(ctx context.Context, token string) (*models.Caller, error) {
	if token == "" {
		return nil, models.Unauthenticated("No token provided")
	}

	ident, err := c.provider.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, models.Unauthenticated("Invalid token")
		}
		return nil, models.Upstream("Failed to verify token", err)
	}

	record, err := c.users.GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Valid identity with no record: treated as insufficient
			// authority, not as a missing resource
			return nil, models.Forbidden("Admin access required")
		}
		return nil, models.Upstream("Failed to fetch user record", err)
	}

	return &models.Caller{ID: record.ID, Email: record.Email, Role: record.Role}, nil
}

// GetCurrentUser resolves the caller's own record. No role is enforced.
func (c *Coordinator) GetCurrentUser(ctx context.Context, token string) (*models.UserRecord, error) {
	if token == "" {
		return nil, models.Unauthenticated("No token provided")
	}

	ident, err := c.provider.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, models.Unauthenticated("Invalid token")
		}
		return nil, models.Upstream("Failed to verify token", err)
	}

	record, err := c.users.GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, models.NotFound("User record not found")
		}
		return nil, models.Upstream("Failed to fetch user record", err)
	}

	return record, nil
}

// ListUsers returns all user records, newest first, optionally filtered to one
// role. Admin only. No pagination; unbounded result size is a known limitation.
func (c *Coordinator) ListUsers(ctx context.Context, token string, roleFilter *models.Role) ([]*models.UserRecord, error) {
	if _, err := c.VerifyCaller(ctx, token); err != nil {
		return nil, err
	}

	if roleFilter != nil && !roleFilter.Valid() {
		return nil, models.InvalidArgument(fmt.Sprintf("invalid role filter: %s", *roleFilter))
	}

	records, err := c.users.List(ctx, roleFilter)
	if err != nil {
		return nil, models.Upstream("Failed to fetch users", err)
	}

	return records, nil
}

// CreateUser provisions a staff user in both stores: identity first, record
// second. If the record insert fails, the just-created identity is deleted
// as compensation; if that also fails the identity is orphaned and the
// condition is logged and published for manual cleanup.
func (c *Coordinator) CreateUser(ctx context.Context, token, email, password, role string) (*models.UserRecord, error) {
	if _, err := c.VerifyCaller(ctx, token); err != nil {
		return nil, err
	}

	if email == "" || password == "" || role == "" {
		return nil, models.InvalidArgument("Email, password, and role are required")
	}

	parsedRole, err := validation.ParseRole(role)
	if err != nil || !parsedRole.AdminAssignable() {
		return nil, models.InvalidArgument("Invalid role")
	}

	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.InvalidArgument("Invalid email format")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.InvalidArgument("Password must be at least 6 characters")
	}

	return c.provision(ctx, email, password, parsedRole)
}

// provision runs the two-phase create shared by admin creation and public
// registration. Ordering is significant: a record is never inserted for a
// non-existent identity.
func (c *Coordinator) provision(ctx context.Context, email, password string, role models.Role) (*models.UserRecord, error) {
	// Phase 1: create the identity. Role metadata mirrors the record's role
	// on the provider side.
	ident, _, err := c.provider.SignUp(ctx, email, password, map[string]string{"role": role.String()})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, models.InvalidArgument("Email is already registered")
		}
		return nil, models.Upstream("Failed to create user in authentication", err)
	}

	// Phase 2: insert the record keyed by the identity's id
	record := &models.UserRecord{ID: ident.ID, Email: email, Role: role}
	if dbErr := c.users.Create(ctx, record); dbErr != nil {
		// Compensate: delete the identity created in phase 1
		if compErr := c.provider.AdminDeleteUser(ctx, ident.ID); compErr != nil {
			c.logger.Error("orphaned_identity",
				zap.String("user_id", ident.ID.String()),
				zap.NamedError("record_insert_error", dbErr),
				zap.NamedError("compensation_error", compErr),
			)
			c.publish(ctx, queue.NewEvent(queue.EventOrphanedIdentity, ident.ID, email).
				WithDetail("record_insert_error", dbErr.Error()).
				WithDetail("compensation_error", compErr.Error()))
			return nil, models.Orphaned(
				"Failed to save user record and failed to roll back the created identity; manual cleanup required",
				errors.Join(dbErr, compErr),
			)
		}

		c.logger.Warn("provisioning_rolled_back",
			zap.String("user_id", ident.ID.String()),
			zap.NamedError("record_insert_error", dbErr),
		)
		return nil, models.Upstream("Failed to create user in database", dbErr)
	}

	c.logger.Info("user_provisioned",
		zap.String("user_id", record.ID.String()),
		zap.String("role", record.Role.String()),
	)
	c.publish(ctx, queue.NewEvent(queue.EventUserProvisioned, record.ID, record.Email).
		WithDetail("role", record.Role.String()))

	return record, nil
}

// UpdateUser applies a partial update (email and/or role) to the local record
// only. Admin only. Email changes are never propagated to the identity
// provider; the resulting divergence between login email and record email is
// surfaced via a warning log and a reconcile audit event.
func (c *Coordinator) UpdateUser(ctx context.Context, token string, userID uuid.UUID, updates models.UserUpdates) (*models.UserRecord, error) {
	if _, err := c.VerifyCaller(ctx, token); err != nil {
		return nil, err
	}

	if updates.Empty() {
		return nil, models.InvalidArgument("No valid fields to update")
	}

	var email *string
	if updates.Email != nil {
		normalized := validation.NormalizeEmail(*updates.Email)
		if err := validation.ValidateEmail(normalized); err != nil {
			return nil, models.InvalidArgument("Invalid email format")
		}
		email = &normalized
	}

	var role *models.Role
	if updates.Role != nil {
		parsed, err := validation.ParseRole(*updates.Role)
		if err != nil {
			return nil, models.InvalidArgument("Invalid role")
		}
		role = &parsed
	}

	record, err := c.users.Update(ctx, userID, email, role)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, models.NotFound("No user found to update")
		}
		return nil, models.Upstream("Failed to update user", err)
	}

	c.publish(ctx, queue.NewEvent(queue.EventUserUpdated, record.ID, record.Email))

	if email != nil {
		// The provider still holds the old login email; the record and the
		// identity now disagree until an operator reconciles them.
		c.logger.Warn("record_email_diverges_from_identity",
			zap.String("user_id", record.ID.String()),
			zap.String("record_email", record.Email),
		)
		c.publish(ctx, queue.NewEvent(queue.EventEmailReconcileNeeded, record.ID, record.Email))
	}

	return record, nil
}

// DeleteUser deprovisions a user: record first, identity second (the reverse
// of create, so an identity is never deleted while a live record references
// it). A failed identity delete leaves the identity orphaned; the record is
// not re-created, since its original field values are gone.
func (c *Coordinator) DeleteUser(ctx context.Context, token string, userID uuid.UUID) error {
	if _, err := c.VerifyCaller(ctx, token); err != nil {
		return err
	}

	// Phase 1: delete the record
	if err := c.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.NotFound("No user found to delete")
		}
		return models.Upstream("Failed to delete user record", err)
	}

	// Phase 2: delete the identity
	if err := c.provider.AdminDeleteUser(ctx, userID); err != nil {
		c.logger.Error("orphaned_identity_after_record_delete",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		c.publish(ctx, queue.NewEvent(queue.EventOrphanedRecordGap, userID, "").
			WithDetail("identity_delete_error", err.Error()))
		return models.Upstream("Failed to delete user from authentication", err)
	}

	c.logger.Info("user_deprovisioned", zap.String("user_id", userID.String()))
	c.publish(ctx, queue.NewEvent(queue.EventUserDeprovisioned, userID, ""))

	return nil
}

// publish sends an audit event; publish failures are logged, never surfaced
func (c *Coordinator) publish(ctx context.Context, event *queue.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("failed_to_publish_audit_event",
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.UserID.String()),
			zap.Error(err),
		)
	}
}

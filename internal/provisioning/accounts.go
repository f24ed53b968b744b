package provisioning

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/database"
	"github.com/bacaltosclinic/portal-api/internal/identity"
	"github.com/bacaltosclinic/portal-api/internal/models"
	"github.com/bacaltosclinic/portal-api/internal/validation"
)

// LoginResult is a successful login: the local record plus the
// provider-issued session.
type LoginResult struct {
	User    *models.UserRecord
	Session *models.Session
}

// Login authenticates against the identity provider and joins the local
// record. When roleHint is non-empty the stored role must match it; a mismatch
// is a Forbidden error, distinct from bad credentials.
func (c *Coordinator) Login(ctx context.Context, email, password, roleHint string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, models.InvalidArgument("Email and password are required")
	}

	email = validation.NormalizeEmail(email)

	ident, session, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, models.Unauthenticated("Invalid email or password")
		}
		return nil, models.Upstream("Login failed", err)
	}

	record, err := c.users.GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// A resolvable identity with no record. Don't reveal which store
			// rejected the login.
			c.logger.Warn("login_identity_without_record",
				zap.String("user_id", ident.ID.String()),
			)
			return nil, models.Unauthenticated("Invalid email or password")
		}
		return nil, models.Upstream("Login failed", err)
	}

	if roleHint != "" && record.Role != models.Role(roleHint) {
		return nil, models.Forbidden("Access denied: account role does not match the requested role")
	}

	return &LoginResult{User: record, Session: session}, nil
}

// RegisterPatient is the public, unauthenticated registration path. The role
// is forced to patient: supplying any other role is rejected outright rather
// than silently overridden. Validation runs before any network call; the
// create itself is the same two-phase provision with compensation.
func (c *Coordinator) RegisterPatient(ctx context.Context, email, password, role string) (*models.UserRecord, error) {
	if email == "" || password == "" {
		return nil, models.InvalidArgument("Email and password are required")
	}

	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.InvalidArgument("Invalid email format")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.InvalidArgument("Password must be at least 6 characters")
	}
	if role != "" && role != models.RolePatient.String() {
		return nil, models.InvalidArgument("Only patient role is allowed for public registration")
	}

	return c.provision(ctx, email, password, models.RolePatient)
}

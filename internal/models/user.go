package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRecord is the local system-of-record row for a user.
// ID mirrors the identity provider's user id and is never generated locally.
type UserRecord struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Caller is a verified request caller: the resolved identity joined with its record
type Caller struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// UserUpdates is a partial update of a user record. Only email and role are
// mutable through the API; any other field in the request body is ignored.
type UserUpdates struct {
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// Empty reports whether the update carries no mutable fields
func (u UserUpdates) Empty() bool {
	return u.Email == nil && u.Role == nil
}

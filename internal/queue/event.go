package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of provisioning audit event
type EventType string

const (
	// EventUserProvisioned is published when both create phases succeed
	EventUserProvisioned EventType = "user.provisioned"
	// EventUserDeprovisioned is published when both delete phases succeed
	EventUserDeprovisioned EventType = "user.deprovisioned"
	// EventUserUpdated is published when a record update is applied
	EventUserUpdated EventType = "user.updated"
	// EventOrphanedIdentity is published when the record insert failed and the
	// compensating identity delete also failed: an identity now exists with no
	// record, and manual cleanup is required
	EventOrphanedIdentity EventType = "user.orphaned_identity"
	// EventOrphanedRecordGap is published when the record was deleted but the
	// identity delete failed: the identity persists with no record
	EventOrphanedRecordGap EventType = "user.orphaned_record_gap"
	// EventEmailReconcileNeeded is published when a record email update
	// diverges from the identity's login email
	EventEmailReconcileNeeded EventType = "user.email_reconcile_needed"
)

// Event is a provisioning audit event. Orphan events are the observable
// surface for inconsistencies the coordinator cannot self-heal.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      EventType      `json:"type"`
	UserID    uuid.UUID      `json:"user_id"`
	Email     string         `json:"email,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent creates a new audit event
func NewEvent(eventType EventType, userID uuid.UUID, email string) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Email:     email,
		Detail:    make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// WithDetail attaches a detail field and returns the event for chaining
func (e *Event) WithDetail(key string, value any) *Event {
	e.Detail[key] = value
	return e
}

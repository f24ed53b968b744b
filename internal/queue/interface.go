package queue

import "context"

// Publisher is the interface for the provisioning audit stream.
// This enables better testability by allowing mock implementations.
type Publisher interface {
	// Publish sends an audit event to the stream
	Publish(ctx context.Context, event *Event) error

	// Close closes the underlying connection
	Close() error

	// HealthCheck verifies the connection is healthy
	HealthCheck(ctx context.Context) error
}

// NopPublisher discards all events. Used in tests and when the audit stream
// is intentionally disabled.
type NopPublisher struct{}

// Publish discards the event
func (NopPublisher) Publish(ctx context.Context, event *Event) error { return nil }

// Close is a no-op
func (NopPublisher) Close() error { return nil }

// HealthCheck always succeeds
func (NopPublisher) HealthCheck(ctx context.Context) error { return nil }

package audit

import (
	"context"
	"time"
)

// Action names an audited administrative act.
type Action string

const (
	ActionStatusChanged Action = "status_changed"
	ActionBatchUpdated  Action = "batch_updated"
	ActionPurged        Action = "purged"
	ActionExported      Action = "exported"
)

// Event is emitted from domain logic to capture key admin actions. Keep it
// transport-agnostic so stores and sinks can fan out. AdminID identifies the
// operator, never a submitter: complaint records have no identity to log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	AdminID   string    `json:"admin_id"`
	Action    Action    `json:"action"`
	TargetID  string    `json:"target_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Store is the append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAdmin(ctx context.Context, adminID string) ([]Event, error)
}

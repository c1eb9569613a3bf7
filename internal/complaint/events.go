package complaint

import "time"

// EventKind names a ledger mutation.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventUpdated      EventKind = "updated"
	EventBatchUpdated EventKind = "batch_updated"
	EventDeleted      EventKind = "deleted"
)

// Event is what the ledger publishes to its event channel after a mutation
// has committed. It carries identity-free views only; a batch mutation is one
// event regardless of size.
type Event struct {
	Kind       EventKind
	Record     *View
	Records    []View
	Status     Status
	Count      int
	DeletedID  string
	OccurredAt time.Time
}

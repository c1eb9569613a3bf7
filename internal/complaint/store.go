package complaint

import (
	"context"
	"time"
)

// Store is the durable keyed storage for complaint records. Implementations
// guarantee read-your-writes within the process and atomic per-record updates.
//
// The mutation surface is deliberately closed: status (plus its timestamp) is
// the only mutable projection, expressed as one typed command rather than a
// field/value map.
type Store interface {
	Save(ctx context.Context, record Record) error
	FindByID(ctx context.Context, id string) (Record, error)

	// List returns all matching records, newest first.
	List(ctx context.Context, filter Filter) ([]Record, error)

	// UpdateStatus atomically sets status and updatedAt on one record and
	// returns the updated row. Returns sentinel.ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Record, error)

	// Delete removes a record permanently. The bool reports whether a record
	// actually existed; deleting an absent id is not an error.
	Delete(ctx context.Context, id string) (bool, error)

	// Stats performs a full recount of the current record set.
	Stats(ctx context.Context) (Stats, error)
}

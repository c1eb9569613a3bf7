// Package complaint owns the complaint lifecycle: validated submissions,
// status transitions, batch triage, and permanent purges. Mutations commit to
// the store first, then surface on an explicit event channel consumed by the
// realtime layer; a failed or dropped event never rolls back a write.
package complaint

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hellokitty09/inharitance/internal/zkpgate"
	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
	"github.com/hellokitty09/inharitance/pkg/sentinel"
)

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Ledger is the single owner of complaint state. It is safe for concurrent
// use; per-record atomicity is delegated to the store.
type Ledger struct {
	store  Store
	logger *slog.Logger
	clock  Clock
	events chan Event
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) LedgerOption {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithEventBuffer sizes the event channel.
func WithEventBuffer(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.events = make(chan Event, n)
		}
	}
}

func NewLedger(store Store, logger *slog.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		logger: logger,
		clock:  time.Now,
		events: make(chan Event, 64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Events exposes the mutation feed for the realtime broadcaster.
func (l *Ledger) Events() <-chan Event {
	return l.events
}

// SubmitInput carries the validated boundary payload of an anonymous
// submission. It has no identity-capable field by construction.
type SubmitInput struct {
	Category    string
	PartyName   string
	Description string
	Evidence    string
	ZKPProof    *zkpgate.Submission
}

// Submit persists a new complaint after gate admission. The gate result must
// not be Rejected; rejected submissions never reach the ledger.
func (l *Ledger) Submit(ctx context.Context, input SubmitInput, gate zkpgate.Result) (Record, error) {
	if input.Category == "" || input.Description == "" {
		return Record{}, pkgerrors.New(pkgerrors.CodeValidation, "category and description are required")
	}
	if gate.Status == zkpgate.StatusRejected {
		return Record{}, pkgerrors.New(pkgerrors.CodeInvalidProof, "rejected submission cannot be persisted")
	}

	now := l.clock()
	record := Record{
		ID:          uuid.NewString(),
		Category:    input.Category,
		PartyName:   input.PartyName,
		Description: input.Description,
		Evidence:    input.Evidence,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if gate.Status == zkpgate.StatusVerified {
		record.RegionHash = gate.RegionHash
	}
	if input.ZKPProof != nil {
		record.ZKPProof = input.ZKPProof.Proof
	}

	// The store write is the commit point: a cancellation observed before it
	// leaves no trace, and nothing after it can undo the submission.
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := l.store.Save(ctx, record); err != nil {
		return Record{}, err
	}

	view := record.View()
	l.emit(Event{Kind: EventCreated, Record: &view, OccurredAt: now})
	return record, nil
}

// Get returns one record.
func (l *Ledger) Get(ctx context.Context, id string) (Record, error) {
	record, err := l.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	return record, err
}

// List returns matching records newest-first plus the total match count
// before pagination. limit <= 0 means no limit.
func (l *Ledger) List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
	records, err := l.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total := len(records)

	if offset > 0 {
		if offset >= len(records) {
			return []Record{}, total, nil
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, total, nil
}

// Transition sets a new status on one record.
func (l *Ledger) Transition(ctx context.Context, id string, status Status) (Record, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Record{}, err
	}

	now := l.clock()
	record, err := l.store.UpdateStatus(ctx, id, status, now)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	if err != nil {
		return Record{}, err
	}

	view := record.View()
	l.emit(Event{Kind: EventUpdated, Record: &view, Status: status, OccurredAt: now})
	return record, nil
}

// BatchTransition applies one status across many ids, skipping unknown ids
// rather than failing. It emits exactly one event regardless of batch size;
// that single event is what keeps a thousand-record triage from producing a
// thousand snapshot recomputes downstream.
func (l *Ledger) BatchTransition(ctx context.Context, ids []string, status Status) (int, []Record, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, pkgerrors.New(pkgerrors.CodeBadRequest, "ids array is required")
	}

	now := l.clock()
	updated := make([]Record, 0, len(ids))
	for _, id := range ids {
		record, err := l.store.UpdateStatus(ctx, id, status, now)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return len(updated), updated, err
		}
		updated = append(updated, record)
	}

	views := make([]View, len(updated))
	for i, record := range updated {
		views[i] = record.View()
	}
	l.emit(Event{
		Kind:       EventBatchUpdated,
		Records:    views,
		Status:     status,
		Count:      len(updated),
		OccurredAt: now,
	})
	return len(updated), updated, nil
}

// Remove purges a record permanently. Idempotent: removing an absent id
// reports false without error, and emits nothing.
func (l *Ledger) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := l.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		l.emit(Event{Kind: EventDeleted, DeletedID: id, OccurredAt: l.clock()})
	}
	return removed, nil
}

// Stats recomputes aggregates from the current record set.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	return l.store.Stats(ctx)
}

// emit publishes without blocking the mutation path. A full channel means an
// overloaded broadcaster; the dropped event is recovered by the snapshot the
// next mutation triggers.
func (l *Ledger) emit(event Event) {
	select {
	case l.events <- event:
	default:
		l.logger.Warn("event channel full, dropping event", "kind", event.Kind)
	}
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/hellokitty09/inharitance/internal/complaint"
)

const recentComplaintLimit = 5

// Publisher delivers a marshaled envelope to connected observers. Delivery is
// best effort: a failed publish is logged, never rolled back, because the
// ledger remains the ground truth and the next snapshot supersedes this one.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// LedgerReader is the slice of the ledger the broadcaster recomputes from.
// Stats and dashboard payloads are always rebuilt from here rather than
// patched incrementally, so drift cannot accumulate.
type LedgerReader interface {
	Stats(ctx context.Context) (complaint.Stats, error)
	List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]complaint.Record, int, error)
}

// Broadcaster consumes ledger events and fans them out as envelopes: the
// mutation itself, then one stats snapshot and one dashboard snapshot. A
// batch transition produces exactly one snapshot pair regardless of how many
// records it touched.
type Broadcaster struct {
	reader    LedgerReader
	events    <-chan complaint.Event
	publisher Publisher
	logger    *slog.Logger
	clock     func() time.Time
	seq       atomic.Uint64
}

type BroadcasterOption func(*Broadcaster)

func WithBroadcasterClock(clock func() time.Time) BroadcasterOption {
	return func(b *Broadcaster) { b.clock = clock }
}

func NewBroadcaster(reader LedgerReader, events <-chan complaint.Event, publisher Publisher, logger *slog.Logger, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		reader:    reader,
		events:    events,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run consumes the ledger event channel until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.logger.Info("realtime broadcaster started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("realtime broadcaster stopped")
			return ctx.Err()
		case ev, ok := <-b.events:
			if !ok {
				b.logger.Info("realtime broadcaster stopped", "reason", "event channel closed")
				return nil
			}
			b.handle(ctx, ev)
		}
	}
}

func (b *Broadcaster) handle(ctx context.Context, ev complaint.Event) {
	switch ev.Kind {
	case complaint.EventCreated:
		b.publish(TopicComplaintNew, ev.Record)
	case complaint.EventUpdated:
		b.publish(TopicComplaintUpdate, ev.Record)
	case complaint.EventBatchUpdated:
		b.publish(TopicComplaintBatchUpdate, BatchUpdatePayload{
			UpdatedComplaints: ev.Records,
			Status:            ev.Status,
			UpdatedCount:      ev.Count,
		})
	case complaint.EventDeleted:
		b.publish(TopicComplaintDelete, DeletePayload{ID: ev.DeletedID})
	default:
		b.logger.Warn("unknown ledger event kind", "kind", ev.Kind)
		return
	}
	b.publishSnapshots(ctx)
}

// publishSnapshots recomputes aggregates from the ledger and publishes one
// stats envelope and one dashboard envelope.
func (b *Broadcaster) publishSnapshots(ctx context.Context) {
	stats, err := b.reader.Stats(ctx)
	if err != nil {
		b.logger.Error("stats recompute failed", "error", err)
		return
	}
	b.publish(TopicStatsUpdate, StatsPayload{Stats: stats})

	dashboard, err := b.dashboard(ctx, stats)
	if err != nil {
		b.logger.Error("dashboard recompute failed", "error", err)
		return
	}
	b.publish(TopicDashboardUpdate, dashboard)
}

// Snapshot returns the current stats and dashboard envelopes for an observer
// that just connected, so it does not have to wait for the next mutation.
func (b *Broadcaster) Snapshot(ctx context.Context) ([]Envelope, error) {
	stats, err := b.reader.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot stats: %w", err)
	}
	dashboard, err := b.dashboard(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("snapshot dashboard: %w", err)
	}
	return []Envelope{
		b.envelope(TopicStatsUpdate, StatsPayload{Stats: stats}),
		b.envelope(TopicDashboardUpdate, dashboard),
	}, nil
}

// Dashboard recomputes the admin dashboard summary from the ledger.
func (b *Broadcaster) Dashboard(ctx context.Context) (DashboardPayload, error) {
	stats, err := b.reader.Stats(ctx)
	if err != nil {
		return DashboardPayload{}, err
	}
	return b.dashboard(ctx, stats)
}

func (b *Broadcaster) dashboard(ctx context.Context, stats complaint.Stats) (DashboardPayload, error) {
	records, _, err := b.reader.List(ctx, complaint.Filter{}, recentComplaintLimit, 0)
	if err != nil {
		return DashboardPayload{}, err
	}

	weekAgo := b.clock().AddDate(0, 0, -7)
	resolvedRecords, _, err := b.reader.List(ctx, complaint.Filter{Status: complaint.StatusResolved}, 0, 0)
	if err != nil {
		return DashboardPayload{}, err
	}
	resolvedThisWeek := 0
	for _, r := range resolvedRecords {
		if !r.UpdatedAt.Before(weekAgo) {
			resolvedThisWeek++
		}
	}

	// Rate over the trailing week, not all time: a stale backlog of old
	// resolutions must not inflate the current number.
	rate := "0%"
	if stats.Total > 0 {
		rate = fmt.Sprintf("%d%%", int(math.Round(float64(resolvedThisWeek)/float64(stats.Total)*100)))
	}

	recent := make([]complaint.Summary, 0, len(records))
	for _, r := range records {
		recent = append(recent, r.Summary())
	}

	return DashboardPayload{
		Stats: DashboardStats{
			TotalComplaints:   stats.Total,
			PendingComplaints: stats.ByStatus[complaint.StatusPending],
			ResolvedThisWeek:  resolvedThisWeek,
			ResolutionRate:    rate,
		},
		CategoryDistribution: stats.ByCategory,
		RecentComplaints:     recent,
	}, nil
}

func (b *Broadcaster) envelope(topic string, data any) Envelope {
	return Envelope{
		Topic:     topic,
		Seq:       b.seq.Add(1),
		Timestamp: b.clock().UTC(),
		Data:      data,
	}
}

func (b *Broadcaster) publish(topic string, data any) {
	env := b.envelope(topic, data)
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("envelope marshal failed", "topic", topic, "error", err)
		return
	}
	if err := b.publisher.Publish(topic, payload); err != nil {
		b.logger.Warn("publish failed", "topic", topic, "seq", env.Seq, "error", err)
	}
}

package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hellokitty09/inharitance/internal/complaint"
)

// ============================================================
// Fakes
// ============================================================

type capturedPublish struct {
	topic    string
	envelope Envelope
}

type fakePublisher struct {
	mu        sync.Mutex
	published []capturedPublish
	failing   bool
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return io.ErrClosedPipe
	}
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	p.published = append(p.published, capturedPublish{topic: topic, envelope: env})
	return nil
}

func (p *fakePublisher) snapshot() []capturedPublish {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedPublish, len(p.published))
	copy(out, p.published)
	return out
}

type fakeReader struct {
	mu      sync.Mutex
	stats   complaint.Stats
	records []complaint.Record
}

func (r *fakeReader) Stats(context.Context) (complaint.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats, nil
}

func (r *fakeReader) List(_ context.Context, filter complaint.Filter, limit, _ int) ([]complaint.Record, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []complaint.Record
	for _, rec := range r.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, len(out), nil
}

// ============================================================
// Suite
// ============================================================

type BroadcasterSuite struct {
	suite.Suite

	now       time.Time
	reader    *fakeReader
	publisher *fakePublisher
	events    chan complaint.Event
	cancel    context.CancelFunc
	done      chan struct{}
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

func (s *BroadcasterSuite) SetupTest() {
	s.now = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	s.reader = &fakeReader{stats: complaint.NewStats()}
	s.publisher = &fakePublisher{}
	s.events = make(chan complaint.Event, 16)

	b := NewBroadcaster(
		s.reader,
		s.events,
		s.publisher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithBroadcasterClock(func() time.Time { return s.now }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = b.Run(ctx)
	}()
}

func (s *BroadcasterSuite) TearDownTest() {
	s.cancel()
	<-s.done
}

func (s *BroadcasterSuite) waitForPublishes(n int) []capturedPublish {
	s.T().Helper()
	var got []capturedPublish
	require.Eventually(s.T(), func() bool {
		got = s.publisher.snapshot()
		return len(got) >= n
	}, time.Second, 5*time.Millisecond)
	return got
}

func topics(published []capturedPublish) []string {
	out := make([]string, len(published))
	for i, p := range published {
		out[i] = p.topic
	}
	return out
}

func (s *BroadcasterSuite) TestMutationEvents() {
	s.Run("created event publishes record then recomputed snapshots", func() {
		s.reader.stats = complaint.Stats{
			Total:      1,
			ByStatus:   map[complaint.Status]int{complaint.StatusPending: 1},
			ByCategory: map[string]int{"corruption": 1},
		}
		view := complaint.Record{ID: "c-1", Category: "corruption", Status: complaint.StatusPending}.View()
		s.events <- complaint.Event{Kind: complaint.EventCreated, Record: &view, OccurredAt: s.now}

		published := s.waitForPublishes(3)
		s.Equal([]string{TopicComplaintNew, TopicStatsUpdate, TopicDashboardUpdate}, topics(published[:3]))

		var stats StatsPayload
		s.decodeData(published[1].envelope, &stats)
		s.Equal(1, stats.Stats.Total)
		s.Equal(1, stats.Stats.ByStatus[complaint.StatusPending])
	})

	s.Run("batch event publishes exactly one snapshot pair", func() {
		views := []complaint.View{
			{ID: "c-1", Status: complaint.StatusReviewing},
			{ID: "c-2", Status: complaint.StatusReviewing},
			{ID: "c-3", Status: complaint.StatusReviewing},
		}
		before := len(s.publisher.snapshot())
		s.events <- complaint.Event{
			Kind:    complaint.EventBatchUpdated,
			Records: views,
			Status:  complaint.StatusReviewing,
			Count:   len(views),
		}

		published := s.waitForPublishes(before + 3)[before:]
		s.Equal([]string{TopicComplaintBatchUpdate, TopicStatsUpdate, TopicDashboardUpdate}, topics(published[:3]))

		var batch BatchUpdatePayload
		s.decodeData(published[0].envelope, &batch)
		s.Equal(3, batch.UpdatedCount)
		s.Len(batch.UpdatedComplaints, 3)
		s.Equal(complaint.StatusReviewing, batch.Status)
	})

	s.Run("delete event carries the purged id", func() {
		before := len(s.publisher.snapshot())
		s.events <- complaint.Event{Kind: complaint.EventDeleted, DeletedID: "c-2"}

		published := s.waitForPublishes(before + 3)[before:]
		s.Equal(TopicComplaintDelete, published[0].topic)

		var del DeletePayload
		s.decodeData(published[0].envelope, &del)
		s.Equal("c-2", del.ID)
	})
}

func (s *BroadcasterSuite) TestSequenceMonotonic() {
	for i := 0; i < 4; i++ {
		view := complaint.Record{ID: "c-1", Status: complaint.StatusPending}.View()
		s.events <- complaint.Event{Kind: complaint.EventUpdated, Record: &view}
	}
	published := s.waitForPublishes(12)

	var prev uint64
	for _, p := range published {
		s.Greater(p.envelope.Seq, prev, "seq must strictly increase in publish order")
		prev = p.envelope.Seq
	}
}

func (s *BroadcasterSuite) TestDashboardPayload() {
	resolvedRecent := complaint.Record{
		ID:        "c-1",
		Category:  "corruption",
		Status:    complaint.StatusResolved,
		CreatedAt: s.now.AddDate(0, 0, -2),
		UpdatedAt: s.now.AddDate(0, 0, -1),
	}
	resolvedStale := complaint.Record{
		ID:        "c-2",
		Category:  "fraud",
		Status:    complaint.StatusResolved,
		CreatedAt: s.now.AddDate(0, 0, -30),
		UpdatedAt: s.now.AddDate(0, 0, -20),
	}
	pending := complaint.Record{
		ID:        "c-3",
		Category:  "fraud",
		PartyName: "Some Party",
		Status:    complaint.StatusPending,
		CreatedAt: s.now.AddDate(0, 0, -1),
		UpdatedAt: s.now.AddDate(0, 0, -1),
	}
	s.reader.records = []complaint.Record{pending, resolvedRecent, resolvedStale}
	s.reader.stats = complaint.Stats{
		Total: 3,
		ByStatus: map[complaint.Status]int{
			complaint.StatusPending:  1,
			complaint.StatusResolved: 2,
		},
		ByCategory: map[string]int{"corruption": 1, "fraud": 2},
	}

	view := pending.View()
	s.events <- complaint.Event{Kind: complaint.EventCreated, Record: &view}
	published := s.waitForPublishes(3)

	var dashboard DashboardPayload
	s.decodeData(published[2].envelope, &dashboard)

	s.Equal(3, dashboard.Stats.TotalComplaints)
	s.Equal(1, dashboard.Stats.PendingComplaints)
	s.Equal(1, dashboard.Stats.ResolvedThisWeek, "resolution older than seven days must not count")
	s.Equal("33%", dashboard.Stats.ResolutionRate, "rate counts only the trailing week's resolutions")
	s.Equal(map[string]int{"corruption": 1, "fraud": 2}, dashboard.CategoryDistribution)
	s.Len(dashboard.RecentComplaints, 3)
	s.Equal("c-3", dashboard.RecentComplaints[0].ID)
}

func (s *BroadcasterSuite) TestPublishFailureDoesNotStopFeed() {
	s.publisher.mu.Lock()
	s.publisher.failing = true
	s.publisher.mu.Unlock()

	view := complaint.Record{ID: "c-1", Status: complaint.StatusPending}.View()
	s.events <- complaint.Event{Kind: complaint.EventCreated, Record: &view}

	// Give the failed publishes time to happen, then recover the publisher.
	time.Sleep(20 * time.Millisecond)
	s.publisher.mu.Lock()
	s.publisher.failing = false
	s.publisher.mu.Unlock()

	s.events <- complaint.Event{Kind: complaint.EventUpdated, Record: &view}
	published := s.waitForPublishes(3)
	s.Equal(TopicComplaintUpdate, published[0].topic)
}

func (s *BroadcasterSuite) decodeData(env Envelope, target any) {
	s.T().Helper()
	raw, err := json.Marshal(env.Data)
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal(raw, target))
}

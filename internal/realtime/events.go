package realtime

import (
	"time"

	"github.com/hellokitty09/inharitance/internal/complaint"
)

// Topic names for the realtime feed. Observers subscribe to the whole feed;
// topics label what each message is.
const (
	TopicComplaintNew         = "complaint:new"
	TopicComplaintUpdate      = "complaint:update"
	TopicComplaintBatchUpdate = "complaint:batch_update"
	TopicComplaintDelete      = "complaint:delete"
	TopicStatsUpdate          = "stats:update"
	TopicDashboardUpdate      = "dashboard:update"
)

// Envelope wraps every published message. Seq is strictly increasing across
// all publishes from this process; an observer comparing Seq values can
// detect which of two snapshots is causally newer, so its view never moves
// backwards.
type Envelope struct {
	Topic     string    `json:"topic"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// StatsPayload is the aggregate snapshot published on every mutation.
type StatsPayload struct {
	Stats complaint.Stats `json:"stats"`
}

// DashboardStats is the derived summary for admin dashboards.
type DashboardStats struct {
	TotalComplaints   int    `json:"totalComplaints"`
	PendingComplaints int    `json:"pendingComplaints"`
	ResolvedThisWeek  int    `json:"resolvedThisWeek"`
	ResolutionRate    string `json:"resolutionRate"`
}

// DashboardPayload carries the dashboard summary, the per-category tallies
// and the most recent complaints in identity-free projection.
type DashboardPayload struct {
	Stats                DashboardStats      `json:"stats"`
	CategoryDistribution map[string]int      `json:"categoryDistribution"`
	RecentComplaints     []complaint.Summary `json:"recentComplaints"`
}

// BatchUpdatePayload mirrors the ledger's single batch event.
type BatchUpdatePayload struct {
	UpdatedComplaints []complaint.View `json:"updatedComplaints"`
	Status            complaint.Status `json:"status"`
	UpdatedCount      int              `json:"updatedCount"`
}

// DeletePayload announces a purge.
type DeletePayload struct {
	ID string `json:"id"`
}

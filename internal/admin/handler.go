// Package admin exposes the moderation surface: bulk transitions, the
// dashboard summary, audit trail reads and data export. Every route here is
// mounted behind admin authentication; complaint payloads stay identity-free
// because the underlying records never had identity to begin with.
package admin

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hellokitty09/inharitance/internal/audit"
	"github.com/hellokitty09/inharitance/internal/complaint"
	"github.com/hellokitty09/inharitance/internal/platform/middleware"
	"github.com/hellokitty09/inharitance/internal/realtime"
	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
	"github.com/hellokitty09/inharitance/pkg/platform/httputil"
)

// Ledger is the slice of the complaint service the admin surface needs.
type Ledger interface {
	List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]complaint.Record, int, error)
	BatchTransition(ctx context.Context, ids []string, status complaint.Status) (int, []complaint.Record, error)
	Stats(ctx context.Context) (complaint.Stats, error)
}

// DashboardSource recomputes the dashboard summary from ground truth.
type DashboardSource interface {
	Dashboard(ctx context.Context) (realtime.DashboardPayload, error)
}

type Handler struct {
	ledger    Ledger
	dashboard DashboardSource
	trail     *audit.Publisher
	auditCh   chan<- audit.Event
	logger    *slog.Logger
}

func New(ledger Ledger, dashboard DashboardSource, trail *audit.Publisher, auditCh chan<- audit.Event, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:    ledger,
		dashboard: dashboard,
		trail:     trail,
		auditCh:   auditCh,
		logger:    logger,
	}
}

// Register mounts the admin endpoints. The router wraps them in RequireAdmin.
func (h *Handler) Register(r chi.Router) {
	r.Get("/complaints", h.HandleList)
	r.Patch("/complaints/batch", h.HandleBatchTransition)
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/export", h.HandleExport)
	r.Get("/audit", h.HandleAuditTrail)
}

type listResponse struct {
	Complaints []complaint.View `json:"complaints"`
	Total      int              `json:"total"`
	Stats      complaint.Stats  `json:"stats"`
}

// HandleList handles GET /api/admin/complaints: the full moderation queue
// with aggregate tallies alongside.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := complaint.Filter{
		Category: r.URL.Query().Get("category"),
		Party:    r.URL.Query().Get("party"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := complaint.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}

	records, total, err := h.ledger.List(ctx, filter, 0, 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.ledger.Stats(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	views := make([]complaint.View, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Complaints: views, Total: total, Stats: stats})
}

type batchRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

type batchResponse struct {
	UpdatedCount int              `json:"updated_count"`
	Complaints   []complaint.View `json:"complaints"`
}

// HandleBatchTransition handles PATCH /api/admin/complaints/batch. Unknown
// ids are skipped, not fatal; the response reports what actually changed.
func (h *Handler) HandleBatchTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[batchRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	status, err := complaint.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, records, err := h.ledger.BatchTransition(ctx, req.IDs, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.emitAudit(ctx, audit.Event{
		AdminID:   middleware.GetAdminID(ctx),
		Action:    audit.ActionBatchUpdated,
		Details:   fmt.Sprintf("%d of %d complaints set to %s", count, len(req.IDs), status),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.logger.InfoContext(ctx, "batch transition applied",
		"admin_id", middleware.GetAdminID(ctx),
		"requested", len(req.IDs),
		"updated", count,
		"status", status,
	)

	views := make([]complaint.View, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	httputil.WriteJSON(w, http.StatusOK, batchResponse{UpdatedCount: count, Complaints: views})
}

// HandleDashboard handles GET /api/admin/dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	payload, err := h.dashboard.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}

// HandleExport handles GET /api/admin/export?format=csv|json.
// Exports carry the identity-free projection only; stored proofs never leave
// the ledger.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httputil.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "format must be json or csv"))
		return
	}

	records, _, err := h.ledger.List(ctx, complaint.Filter{}, 0, 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.emitAudit(ctx, audit.Event{
		AdminID:   middleware.GetAdminID(ctx),
		Action:    audit.ActionExported,
		Details:   fmt.Sprintf("%d complaints as %s", len(records), format),
		RequestID: middleware.GetRequestID(ctx),
	})

	stamp := time.Now().UTC().Format("2006-01-02")
	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="complaints-%s.csv"`, stamp))
		writeCSV(w, records)
		return
	}

	views := make([]complaint.View, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="complaints-%s.json"`, stamp))
	httputil.WriteJSON(w, http.StatusOK, views)
}

func writeCSV(w http.ResponseWriter, records []complaint.Record) {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "category", "party_name", "description", "status", "region_hash", "created_at", "updated_at"})
	for _, rec := range records {
		_ = cw.Write([]string{
			rec.ID,
			rec.Category,
			rec.PartyName,
			rec.Description,
			string(rec.Status),
			rec.RegionHash,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
}

// HandleAuditTrail handles GET /api/admin/audit?admin_id=... and returns the
// audit lines written by the given operator.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	adminID := r.URL.Query().Get("admin_id")
	if adminID == "" {
		adminID = middleware.GetAdminID(r.Context())
	}
	events, err := h.trail.List(r.Context(), adminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"admin_id": adminID, "events": events})
}

func (h *Handler) emitAudit(ctx context.Context, event audit.Event) {
	if h.auditCh == nil {
		return
	}
	select {
	case h.auditCh <- event:
	default:
		h.logger.WarnContext(ctx, "audit channel full, dropping event", "action", event.Action)
	}
}

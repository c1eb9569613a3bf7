// Package handler wires the complaint ledger to its HTTP surface. Public
// routes never require identity; moderation routes are mounted behind the
// admin middleware by the router.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hellokitty09/inharitance/internal/audit"
	"github.com/hellokitty09/inharitance/internal/complaint"
	"github.com/hellokitty09/inharitance/internal/platform/metrics"
	"github.com/hellokitty09/inharitance/internal/platform/middleware"
	"github.com/hellokitty09/inharitance/internal/zkpgate"
	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
	"github.com/hellokitty09/inharitance/pkg/platform/httputil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service is the slice of the ledger the handler needs.
type Service interface {
	Submit(ctx context.Context, input complaint.SubmitInput, gate zkpgate.Result) (complaint.Record, error)
	Get(ctx context.Context, id string) (complaint.Record, error)
	List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]complaint.Record, int, error)
	Transition(ctx context.Context, id string, status complaint.Status) (complaint.Record, error)
	Remove(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (complaint.Stats, error)
}

// Admitter is the proof gate consulted before any submission is persisted.
type Admitter interface {
	Admit(ctx context.Context, sub *zkpgate.Submission) (zkpgate.Result, error)
}

type Handler struct {
	service Service
	gate    Admitter
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditCh chan<- audit.Event
}

func New(service Service, gate Admitter, logger *slog.Logger, m *metrics.Metrics, auditCh chan<- audit.Event) *Handler {
	return &Handler{
		service: service,
		gate:    gate,
		logger:  logger,
		metrics: m,
		auditCh: auditCh,
	}
}

// Register mounts the public complaint endpoints. submitLimit, when non-nil,
// wraps only the submission route; reads are never rate limited.
func (h *Handler) Register(r chi.Router, submitLimit func(http.Handler) http.Handler) {
	if submitLimit != nil {
		r.With(submitLimit).Post("/complaints", h.HandleSubmit)
	} else {
		r.Post("/complaints", h.HandleSubmit)
	}
	r.Get("/complaints", h.HandleList)
	r.Get("/complaints/stats/summary", h.HandleStats)
	r.Get("/complaints/{id}", h.HandleGet)
}

// RegisterAdmin mounts single-record moderation endpoints. The router wraps
// these in admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Patch("/complaints/{id}/status", h.HandleTransition)
	r.Delete("/complaints/{id}", h.HandleRemove)
}

type submitRequest struct {
	Category    string              `json:"category"`
	PartyName   string              `json:"party_name"`
	Description string              `json:"description"`
	Evidence    string              `json:"evidence"`
	ZKPProof    *zkpgate.Submission `json:"zkp_proof"`
}

// submitResponse deliberately echoes nothing the submitter typed. The receipt
// is id, status and timestamp; everything else stays server-side.
type submitResponse struct {
	ID        string           `json:"id"`
	Status    complaint.Status `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// HandleSubmit handles POST /api/complaints.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.Decode[submitRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	gateResult, err := h.gate.Admit(ctx, req.ZKPProof)
	if err != nil {
		h.metrics.SubmissionsTotal.WithLabelValues(string(zkpgate.StatusRejected)).Inc()
		h.logger.WarnContext(ctx, "submission gate refused proof",
			"request_id", requestID,
			"code", pkgerrors.CodeOf(err),
		)
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Submit(ctx, complaint.SubmitInput{
		Category:    req.Category,
		PartyName:   req.PartyName,
		Description: req.Description,
		Evidence:    req.Evidence,
		ZKPProof:    req.ZKPProof,
	}, gateResult)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.metrics.SubmissionsTotal.WithLabelValues(string(gateResult.Status)).Inc()
	h.logger.InfoContext(ctx, "complaint submitted",
		"request_id", requestID,
		"complaint_id", record.ID,
		"category", record.Category,
		"gate", gateResult.Status,
	)
	httputil.WriteJSON(w, http.StatusCreated, submitResponse{
		ID:        record.ID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
	})
}

type listResponse struct {
	Complaints []complaint.View `json:"complaints"`
	Total      int              `json:"total"`
}

// HandleList handles GET /api/complaints with optional status, category,
// party, limit and offset query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := complaint.Filter{
		Category: q.Get("category"),
		Party:    q.Get("party"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := complaint.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}

	limit, offset, err := pagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, total, err := h.service.List(ctx, filter, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	views := make([]complaint.View, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Complaints: views, Total: total})
}

// HandleGet handles GET /api/complaints/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record.View())
}

// HandleStats handles GET /api/complaints/stats/summary.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

type transitionRequest struct {
	Status string `json:"status"`
}

// HandleTransition handles PATCH /api/admin/complaints/{id}/status.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	req, ok := httputil.Decode[transitionRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	status, err := complaint.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Transition(ctx, id, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.metrics.TransitionsTotal.Inc()
	h.emitAudit(ctx, audit.Event{
		AdminID:   middleware.GetAdminID(ctx),
		Action:    audit.ActionStatusChanged,
		TargetID:  id,
		Details:   fmt.Sprintf("status set to %s", status),
		RequestID: middleware.GetRequestID(ctx),
	})
	httputil.WriteJSON(w, http.StatusOK, record.View())
}

// HandleRemove handles DELETE /api/admin/complaints/{id}. Removal is
// idempotent: a second delete of the same id is a 404, not an error page.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	removed, err := h.service.Remove(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !removed {
		httputil.WriteError(w, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found"))
		return
	}

	h.emitAudit(ctx, audit.Event{
		AdminID:   middleware.GetAdminID(ctx),
		Action:    audit.ActionPurged,
		TargetID:  id,
		RequestID: middleware.GetRequestID(ctx),
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "deleted": "true"})
}

// emitAudit never blocks a request on the audit pipeline.
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

func pagination(rawLimit, rawOffset string) (int, int, error) {
	limit := defaultPageSize
	offset := 0
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 0 {
			return 0, 0, pkgerrors.New(pkgerrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if rawOffset != "" {
		n, err := strconv.Atoi(rawOffset)
		if err != nil || n < 0 {
			return 0, 0, pkgerrors.New(pkgerrors.CodeBadRequest, "offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/hellokitty09/inharitance/internal/audit"
	"github.com/hellokitty09/inharitance/internal/complaint"
	"github.com/hellokitty09/inharitance/internal/platform/middleware"
	"github.com/hellokitty09/inharitance/internal/realtime"
	"github.com/hellokitty09/inharitance/internal/zkpgate"
)

type AdminHandlerSuite struct {
	suite.Suite

	now     time.Time
	ledger  *complaint.Ledger
	auditCh chan audit.Event
	router  chi.Router
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	store := complaint.NewInMemoryStore()
	s.ledger = complaint.NewLedger(store, logger, complaint.WithClock(func() time.Time { return s.now }))

	broadcaster := realtime.NewBroadcaster(
		s.ledger,
		s.ledger.Events(),
		nil,
		logger,
		realtime.WithBroadcasterClock(func() time.Time { return s.now }),
	)

	auditStore := audit.NewInMemoryStore()
	s.auditCh = make(chan audit.Event, 8)

	h := New(s.ledger, broadcaster, audit.NewPublisher(auditStore), s.auditCh, logger)
	s.router = chi.NewRouter()
	// Simulate the authenticated admin the middleware would inject.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.ContextKeyAdminID, "admin-7")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(s.router)
}

func (s *AdminHandlerSuite) seed(category, description string) complaint.Record {
	s.T().Helper()
	record, err := s.ledger.Submit(context.Background(), complaint.SubmitInput{
		Category:    category,
		Description: description,
	}, zkpgate.Result{Status: zkpgate.StatusUnverified})
	s.Require().NoError(err)
	return record
}

func (s *AdminHandlerSuite) TestBatchTransition() {
	a := s.seed("corruption", "one")
	b := s.seed("fraud", "two")

	s.Run("mixed ids update what exists and audit the act", func() {
		body, _ := json.Marshal(map[string]any{
			"ids":    []string{a.ID, b.ID, "ghost"},
			"status": "reviewing",
		})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/complaints/batch", bytes.NewReader(body)))
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			UpdatedCount int              `json:"updated_count"`
			Complaints   []complaint.View `json:"complaints"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(2, resp.UpdatedCount)
		s.Len(resp.Complaints, 2)

		select {
		case ev := <-s.auditCh:
			s.Equal(audit.ActionBatchUpdated, ev.Action)
			s.Equal("admin-7", ev.AdminID)
		default:
			s.Fail("expected an audit event")
		}
	})

	s.Run("invalid status touches nothing", func() {
		body := []byte(`{"ids":["` + a.ID + `"],"status":"archived"}`)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/complaints/batch", bytes.NewReader(body)))
		s.Equal(http.StatusBadRequest, w.Code)

		record, err := s.ledger.Get(context.Background(), a.ID)
		s.Require().NoError(err)
		s.Equal(complaint.StatusReviewing, record.Status)
	})
}

func (s *AdminHandlerSuite) TestListWithTallies() {
	s.seed("corruption", "one")
	s.seed("fraud", "two")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/complaints", nil))
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Complaints []complaint.View `json:"complaints"`
		Total      int              `json:"total"`
		Stats      complaint.Stats  `json:"stats"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(2, resp.Total)
	s.Equal(2, resp.Stats.Total)
	s.Equal(1, resp.Stats.ByCategory["corruption"])
}

func (s *AdminHandlerSuite) TestDashboard() {
	record := s.seed("corruption", "one")
	_, err := s.ledger.Transition(context.Background(), record.ID, complaint.StatusResolved)
	s.Require().NoError(err)
	s.seed("fraud", "two")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	s.Require().Equal(http.StatusOK, w.Code)

	var resp realtime.DashboardPayload
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(2, resp.Stats.TotalComplaints)
	s.Equal(1, resp.Stats.PendingComplaints)
	s.Equal(1, resp.Stats.ResolvedThisWeek)
	s.Equal("50%", resp.Stats.ResolutionRate)
	s.Equal(map[string]int{"corruption": 1, "fraud": 1}, resp.CategoryDistribution)
	s.Len(resp.RecentComplaints, 2)
}

func (s *AdminHandlerSuite) TestExport() {
	s.seed("corruption", "descr one")
	s.seed("fraud", "descr two")

	s.Run("csv carries the identity-free columns", func() {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("text/csv", w.Header().Get("Content-Type"))

		rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
		s.Require().NoError(err)
		s.Len(rows, 3)
		s.Equal([]string{"id", "category", "party_name", "description", "status", "region_hash", "created_at", "updated_at"}, rows[0])
	})

	s.Run("json export returns views", func() {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?format=json", nil))
		s.Require().Equal(http.StatusOK, w.Code)

		var views []complaint.View
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &views))
		s.Len(views, 2)
	})

	s.Run("unknown format is rejected", func() {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?format=xml", nil))
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *AdminHandlerSuite) TestAuditTrail() {
	auditStore := audit.NewInMemoryStore()
	trail := audit.NewPublisher(auditStore)
	s.Require().NoError(trail.Emit(context.Background(), audit.Event{
		AdminID:  "admin-7",
		Action:   audit.ActionStatusChanged,
		TargetID: "c-1",
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broadcaster := realtime.NewBroadcaster(s.ledger, s.ledger.Events(), nil, logger)
	h := New(s.ledger, broadcaster, trail, nil, logger)
	router := chi.NewRouter()
	h.Register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?admin_id=admin-7", nil))
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		AdminID string        `json:"admin_id"`
		Events  []audit.Event `json:"events"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("admin-7", resp.AdminID)
	s.Len(resp.Events, 1)
}

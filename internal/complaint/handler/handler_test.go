package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/hellokitty09/inharitance/internal/audit"
	"github.com/hellokitty09/inharitance/internal/complaint"
	"github.com/hellokitty09/inharitance/internal/platform/metrics"
	"github.com/hellokitty09/inharitance/internal/zkpgate"
	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
)

var testMetrics = metrics.New()

// fakeGate lets tests pick the admission outcome without a real oracle.
type fakeGate struct {
	result zkpgate.Result
	err    error
}

func (g *fakeGate) Admit(_ context.Context, sub *zkpgate.Submission) (zkpgate.Result, error) {
	if sub == nil {
		return zkpgate.Result{Status: zkpgate.StatusUnverified}, nil
	}
	return g.result, g.err
}

type ComplaintHandlerSuite struct {
	suite.Suite

	store   *complaint.InMemoryStore
	ledger  *complaint.Ledger
	gate    *fakeGate
	auditCh chan audit.Event
	router  chi.Router
}

func TestComplaintHandlerSuite(t *testing.T) {
	suite.Run(t, new(ComplaintHandlerSuite))
}

func (s *ComplaintHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = complaint.NewInMemoryStore()
	s.ledger = complaint.NewLedger(s.store, logger)
	s.gate = &fakeGate{}
	s.auditCh = make(chan audit.Event, 8)

	h := New(s.ledger, s.gate, logger, testMetrics, s.auditCh)
	s.router = chi.NewRouter()
	h.Register(s.router, nil)
	h.RegisterAdmin(s.router)
}

func (s *ComplaintHandlerSuite) submit(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/complaints", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// ============================================================
// Submission
// ============================================================

func (s *ComplaintHandlerSuite) TestSubmit() {
	s.Run("proof-less submission returns minimal receipt", func() {
		w := s.submit(`{"category":"corruption","description":"bribes demanded for permits"}`)
		s.Equal(http.StatusCreated, w.Code)

		var resp map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.NotEmpty(resp["id"])
		s.Equal(string(complaint.StatusPending), resp["status"])
		s.NotEmpty(resp["created_at"])
		s.NotContains(resp, "description", "receipt must not echo submitted content")
		s.NotContains(resp, "region_hash")
	})

	s.Run("missing category is rejected", func() {
		w := s.submit(`{"description":"no category"}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), string(pkgerrors.CodeValidation))
	})

	s.Run("malformed body is a bad request", func() {
		w := s.submit(`{"category": `)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejected proof never persists a record", func() {
		s.gate.result = zkpgate.Result{Status: zkpgate.StatusRejected}
		s.gate.err = pkgerrors.New(pkgerrors.CodeInvalidProof, "proof rejected by verifier")

		w := s.submit(`{"category":"corruption","description":"x","zkp_proof":{"proof":{"a":"1"},"publicSignals":["1","2"]}}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), string(pkgerrors.CodeInvalidProof))

		records, err := s.store.List(context.Background(), complaint.Filter{})
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("verifier outage maps to bad gateway", func() {
		s.gate.result = zkpgate.Result{}
		s.gate.err = pkgerrors.New(pkgerrors.CodeVerifier, "oracle unreachable")

		w := s.submit(`{"category":"corruption","description":"x","zkp_proof":{"proof":{"a":"1"},"publicSignals":["1","2"]}}`)
		s.Equal(http.StatusBadGateway, w.Code)
	})

	s.Run("verified proof pins the region hash on the record", func() {
		s.gate.result = zkpgate.Result{Status: zkpgate.StatusVerified, RegionHash: "12345"}
		s.gate.err = nil

		w := s.submit(`{"category":"corruption","description":"x","zkp_proof":{"proof":{"a":"1"},"publicSignals":["777","12345"]}}`)
		s.Require().Equal(http.StatusCreated, w.Code)

		var resp map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		record, err := s.ledger.Get(context.Background(), resp["id"].(string))
		s.Require().NoError(err)
		s.Equal("12345", record.RegionHash)
	})
}

// ============================================================
// Reads
// ============================================================

func (s *ComplaintHandlerSuite) TestListAndGet() {
	s.submit(`{"category":"corruption","description":"first"}`)
	s.submit(`{"category":"fraud","description":"second"}`)

	s.Run("list returns views and total", func() {
		req := httptest.NewRequest(http.MethodGet, "/complaints", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			Complaints []complaint.View `json:"complaints"`
			Total      int              `json:"total"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(2, resp.Total)
		s.Len(resp.Complaints, 2)
	})

	s.Run("category filter narrows the list", func() {
		req := httptest.NewRequest(http.MethodGet, "/complaints?category=fraud", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		var resp struct {
			Total int `json:"total"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(1, resp.Total)
	})

	s.Run("invalid status filter is rejected", func() {
		req := httptest.NewRequest(http.MethodGet, "/complaints?status=nonsense", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown id is a 404", func() {
		req := httptest.NewRequest(http.MethodGet, "/complaints/nope", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("stats summary aggregates", func() {
		req := httptest.NewRequest(http.MethodGet, "/complaints/stats/summary", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Require().Equal(http.StatusOK, w.Code)

		var stats complaint.Stats
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &stats))
		s.Equal(2, stats.Total)
		s.Equal(1, stats.ByCategory["fraud"])
	})
}

// ============================================================
// Moderation
// ============================================================

func (s *ComplaintHandlerSuite) TestTransitionAndRemove() {
	w := s.submit(`{"category":"corruption","description":"first"}`)
	var created map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)

	s.Run("transition updates status and emits audit", func() {
		body := bytes.NewReader([]byte(`{"status":"reviewing"}`))
		req := httptest.NewRequest(http.MethodPatch, "/complaints/"+id+"/status", body)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Require().Equal(http.StatusOK, rec.Code)

		var view complaint.View
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &view))
		s.Equal(complaint.StatusReviewing, view.Status)

		select {
		case ev := <-s.auditCh:
			s.Equal(audit.ActionStatusChanged, ev.Action)
			s.Equal(id, ev.TargetID)
		case <-time.After(time.Second):
			s.Fail("expected an audit event")
		}
	})

	s.Run("unknown status is rejected", func() {
		body := bytes.NewReader([]byte(`{"status":"archived"}`))
		req := httptest.NewRequest(http.MethodPatch, "/complaints/"+id+"/status", body)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), string(pkgerrors.CodeInvalidStatus))
	})

	s.Run("delete is idempotent via 404 on repeat", func() {
		req := httptest.NewRequest(http.MethodDelete, "/complaints/"+id, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusOK, rec.Code)

		select {
		case ev := <-s.auditCh:
			s.Equal(audit.ActionPurged, ev.Action)
		case <-time.After(time.Second):
			s.Fail("expected an audit event")
		}

		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/complaints/"+id, nil))
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/crypto-scalper/internal/engine"
	"github.com/rickgao/crypto-scalper/internal/instrument"
	"github.com/rickgao/crypto-scalper/internal/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubPairs struct{}

func (stubPairs) Pairs() []instrument.Pair { return nil }
func (stubPairs) LastSync() time.Time      { return time.Time{} }

type stubCycles struct {
	last engine.CycleSummary
	ok   bool
}

func (s stubCycles) LastCycle() (engine.CycleSummary, bool) { return s.last, s.ok }

func TestHealth(t *testing.T) {
	recent := engine.CycleSummary{Number: 4, StartedAt: time.Now()}
	stale := engine.CycleSummary{Number: 4, StartedAt: time.Now().Add(-time.Hour)}

	tests := []struct {
		name       string
		db         error
		cycles     stubCycles
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, stubCycles{recent, true}, http.StatusOK, "healthy"},
		{"no cycle yet", nil, stubCycles{}, http.StatusOK, "healthy"},
		{"stale cycle", nil, stubCycles{stale, true}, http.StatusOK, "degraded"},
		{"database down", errors.New("refused"), stubCycles{recent, true}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createHandler(stubPinger{tt.db}, stubPairs{}, tt.cycles, prometheus.NewRegistry(), "/metrics", 10*time.Second)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveCycle(time.Second)

	h := createHandler(stubPinger{}, stubPairs{}, stubCycles{}, reg, "/metrics", time.Second)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty metrics body")
	}
}

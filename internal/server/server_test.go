package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/metrics"
	"github.com/quizwatch/quizwatch/internal/storage"
	"github.com/quizwatch/quizwatch/internal/watcher"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	snapshot *event.Snapshot
	entries  []*storage.HistoryEntry
	err      error
	gotLimit int
}

func (f *fakeStore) LoadLatest() (*event.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeStore) RecentHistory(n int) ([]*storage.HistoryEntry, error) {
	f.gotLimit = n
	if f.err != nil {
		return nil, f.err
	}
	if len(f.entries) > n {
		return f.entries[len(f.entries)-n:], nil
	}
	return f.entries, nil
}

type fakeRunner struct {
	last *watcher.Result
	err  error
}

func (f *fakeRunner) RunOnce(ctx context.Context) (*watcher.Result, error) {
	if f.err != nil {
		return f.last, f.err
	}
	return f.last, nil
}

func (f *fakeRunner) LastResult() *watcher.Result { return f.last }

func testSnapshot() *event.Snapshot {
	return event.CreateSnapshot([]*event.Event{
		{ID: "game-501", SequenceNumber: "#501", Availability: event.AvailabilityActive, ContentHash: "a"},
		{ID: "game-502", SequenceNumber: "#502", Availability: event.AvailabilityReserve, ContentHash: "b"},
	}, "cycle-1", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.Handler().ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v\n%s", err, w.Body.String())
		}
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	runner := &fakeRunner{last: &watcher.Result{CycleID: "cycle-7", Outcome: metrics.ResultOK}}
	s := New(":0", &fakeStore{}, runner, nil)

	w, _ := do(t, s, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Status    string         `json:"status"`
		LastCycle watcher.Result `json:"last_cycle"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.LastCycle.CycleID != "cycle-7" {
		t.Errorf("health body = %s", w.Body.String())
	}
}

func TestSnapshot(t *testing.T) {
	s := New(":0", &fakeStore{snapshot: testSnapshot()}, nil, nil)

	w, resp := do(t, s, http.MethodGet, "/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp.Meta["total"] != float64(2) || resp.Meta["active"] != float64(1) || resp.Meta["reserve"] != float64(1) {
		t.Errorf("meta = %v", resp.Meta)
	}
	if !strings.Contains(w.Body.String(), `"cycle_id":"cycle-1"`) {
		t.Errorf("body missing snapshot: %s", w.Body.String())
	}
}

func TestSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"corrupt", fmt.Errorf("parsing: %w", storage.ErrCorrupt), http.StatusServiceUnavailable},
		{"io", errors.New("disk gone"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", &fakeStore{err: tt.err}, nil, nil)
			w, resp := do(t, s, http.MethodGet, "/snapshot")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if resp.Code != tt.want || resp.Message == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	var entries []*storage.HistoryEntry
	for i := 0; i < 150; i++ {
		entries = append(entries, &storage.HistoryEntry{CycleID: fmt.Sprintf("c%d", i)})
	}

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "/history", http.StatusOK, defaultHistoryLimit},
		{"explicit limit", "/history?limit=5", http.StatusOK, 5},
		{"max limit", "/history?limit=1000", http.StatusOK, 1000},
		{"zero", "/history?limit=0", http.StatusBadRequest, 0},
		{"too large", "/history?limit=1001", http.StatusBadRequest, 0},
		{"not a number", "/history?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{entries: entries}
			s := New(":0", store, nil, nil)

			w, resp := do(t, s, http.MethodGet, tt.query)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if store.gotLimit != tt.wantLimit {
				t.Errorf("RecentHistory(%d), want %d", store.gotLimit, tt.wantLimit)
			}
			wantCount := tt.wantLimit
			if wantCount > len(entries) {
				wantCount = len(entries)
			}
			if resp.Meta["count"] != float64(wantCount) {
				t.Errorf("count = %v, want %d", resp.Meta["count"], wantCount)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		want   int
	}{
		{"ok", &fakeRunner{last: &watcher.Result{CycleID: "c1", Outcome: metrics.ResultOK}}, http.StatusOK},
		{"busy", &fakeRunner{err: watcher.ErrCycleInProgress}, http.StatusConflict},
		{"failed", &fakeRunner{last: &watcher.Result{CycleID: "c2"}, err: errors.New("fetch failed")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", &fakeStore{}, tt.runner, nil)
			w, _ := do(t, s, http.MethodPost, "/check")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	s := New(":0", &fakeStore{}, nil, nil)
	if w, _ := do(t, s, http.MethodPost, "/check"); w.Code != http.StatusNotImplemented {
		t.Errorf("without runner status = %d, want 501", w.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.ObserveCycle(metrics.ResultOK, time.Second)
	s := New(":0", &fakeStore{}, nil, m)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `quizwatch_cycles_total{result="ok"} 1`) {
		t.Errorf("metrics output missing cycle counter")
	}
}

func TestRun_Shutdown(t *testing.T) {
	s := New("127.0.0.1:0", &fakeStore{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

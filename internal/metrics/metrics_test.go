package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCycle(t *testing.T) {
	m := New()

	m.ObserveCycle(ResultOK, 2*time.Second)
	m.ObserveCycle(ResultOK, time.Second)
	m.ObserveCycle(ResultError, time.Second)

	if got := testutil.ToFloat64(m.cycles.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok cycles = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cycles.WithLabelValues(ResultError)); got != 1 {
		t.Errorf("error cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastSuccessTS); got == 0 {
		t.Error("last success timestamp not set")
	}
}

func TestObserveCycle_ErrorLeavesLastSuccess(t *testing.T) {
	m := New()
	m.ObserveCycle(ResultCorrupt, time.Second)

	if got := testutil.ToFloat64(m.lastSuccessTS); got != 0 {
		t.Errorf("last success = %v after a failed cycle, want 0", got)
	}
}

func TestObserveSnapshotAndDiff(t *testing.T) {
	m := New()

	m.ObserveSnapshot(5, map[string]int{"active": 3, "reserve": 2})
	m.ObserveDiff(2, 1)
	m.ObserveDiff(1, 0)
	m.ObserveMisses(map[string]int{"price": 2, "time": 1})
	m.ObserveMisses(map[string]int{"price": 1})
	m.NotifyFailed("telegram")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"observed", testutil.ToFloat64(m.eventsObserved), 5},
		{"active", testutil.ToFloat64(m.eventsByState.WithLabelValues("active")), 3},
		{"reserve", testutil.ToFloat64(m.eventsByState.WithLabelValues("reserve")), 2},
		{"new", testutil.ToFloat64(m.newEvents), 3},
		{"changed", testutil.ToFloat64(m.changedEvents), 1},
		{"price misses", testutil.ToFloat64(m.extractMisses.WithLabelValues("price")), 3},
		{"time misses", testutil.ToFloat64(m.extractMisses.WithLabelValues("time")), 1},
		{"telegram failures", testutil.ToFloat64(m.notifyFailures.WithLabelValues("telegram")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle(ResultOK, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`quizwatch_cycles_total{result="ok"} 1`,
		"quizwatch_cycle_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	a, b := New(), New()
	a.ObserveDiff(1, 0)

	if got := testutil.ToFloat64(b.newEvents); got != 0 {
		t.Errorf("second instance saw %v new events, want 0", got)
	}
}

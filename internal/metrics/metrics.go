// Package metrics exposes Prometheus metrics for watch cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results used as the "result" label
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultCorrupt  = "corrupt"
	ResultSkipped  = "skipped"
	ResultNotified = "notified"
)

// Metrics holds the watch collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	eventsObserved prometheus.Gauge
	eventsByState  *prometheus.GaugeVec
	newEvents      prometheus.Counter
	changedEvents  prometheus.Counter
	extractMisses  *prometheus.CounterVec
	notifyFailures *prometheus.CounterVec
	lastSuccessTS  prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizwatch",
		Name:      "cycles_total",
		Help:      "Number of watch cycles by result",
	}, []string{"result"})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizwatch",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent on one fetch, parse, diff and notify cycle",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	m.eventsObserved = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quizwatch",
		Name:      "events_observed",
		Help:      "Tracked games found in the last successful cycle",
	})
	m.eventsByState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "quizwatch",
		Name:      "events_by_availability",
		Help:      "Tracked games in the last successful cycle by availability",
	}, []string{"availability"})
	m.newEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quizwatch",
		Name:      "new_events_total",
		Help:      "Games reported as new",
	})
	m.changedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quizwatch",
		Name:      "changed_events_total",
		Help:      "Games reported with an availability change",
	})
	m.extractMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizwatch",
		Name:      "extraction_misses_total",
		Help:      "Fields that no extraction strategy could fill",
	}, []string{"field"})
	m.notifyFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizwatch",
		Name:      "notify_failures_total",
		Help:      "Failed notification deliveries by channel",
	}, []string{"channel"})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quizwatch",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful cycle",
	})

	m.registry.MustRegister(
		m.cycles, m.cycleDuration, m.eventsObserved, m.eventsByState,
		m.newEvents, m.changedEvents, m.extractMisses, m.notifyFailures,
		m.lastSuccessTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records the result and duration of one cycle
func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
	if result == ResultOK || result == ResultNotified {
		m.lastSuccessTS.Set(float64(time.Now().Unix()))
	}
}

// ObserveSnapshot records how many games were found, by availability
func (m *Metrics) ObserveSnapshot(total int, byAvailability map[string]int) {
	m.eventsObserved.Set(float64(total))
	for state, n := range byAvailability {
		m.eventsByState.WithLabelValues(state).Set(float64(n))
	}
}

// ObserveDiff adds the new and changed counts of one cycle
func (m *Metrics) ObserveDiff(newCount, changedCount int) {
	m.newEvents.Add(float64(newCount))
	m.changedEvents.Add(float64(changedCount))
}

// ObserveMisses adds per-field extraction misses
func (m *Metrics) ObserveMisses(misses map[string]int) {
	for field, n := range misses {
		m.extractMisses.WithLabelValues(field).Add(float64(n))
	}
}

// NotifyFailed counts a failed delivery on channel
func (m *Metrics) NotifyFailed(channel string) {
	m.notifyFailures.WithLabelValues(channel).Inc()
}

package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/filter"
	"github.com/quizwatch/quizwatch/internal/logger"
	"github.com/quizwatch/quizwatch/internal/metrics"
	"github.com/quizwatch/quizwatch/internal/notifier"
	"github.com/quizwatch/quizwatch/internal/scraper"
	"github.com/quizwatch/quizwatch/internal/storage"
)

// ErrCycleInProgress is returned when a cycle is requested while another one runs
var ErrCycleInProgress = errors.New("watch cycle already in progress")

// Fetcher downloads the schedule page
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	URL() string
}

// Store persists snapshots between cycles
type Store interface {
	LoadLatest() (*event.Snapshot, error)
	Save(snapshot *event.Snapshot) error
	SavePage(body []byte) error
}

// Options configures a Runner. Every field is optional.
type Options struct {
	SeriesTitle string
	// SavePage keeps the fetched page as last_page.html
	SavePage bool
	// Filter limits what is notified. Snapshots are always stored unfiltered.
	Filter   *filter.Filter
	Notifier notifier.Notifier
	Metrics  *metrics.Metrics
}

// Result describes one finished cycle
type Result struct {
	CycleID   string            `json:"cycle_id"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Outcome   string            `json:"outcome"`
	Blocks    int               `json:"blocks"`
	Skipped   int               `json:"skipped"`
	Snapshot  *event.Snapshot   `json:"-"`
	Diff      *event.DiffResult `json:"diff,omitempty"`
	// Notified is Diff after the filter was applied
	Notified *event.DiffResult `json:"notified,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// HasUpdates reports whether the unfiltered diff found new or changed games
func (r *Result) HasUpdates() bool {
	return r != nil && r.Diff.HasUpdates()
}

// Runner executes watch cycles one at a time
type Runner struct {
	mu sync.Mutex

	fetcher Fetcher
	parser  *scraper.Parser
	store   Store
	opts    Options
	newID   func() string
	now     func() time.Time

	lastMu sync.RWMutex
	last   *Result
}

// NewRunner creates a cycle runner
func NewRunner(fetcher Fetcher, parser *scraper.Parser, store Store, opts Options) *Runner {
	return &Runner{
		fetcher: fetcher,
		parser:  parser,
		store:   store,
		opts:    opts,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// LastResult returns the most recent finished cycle, or nil
func (r *Runner) LastResult() *Result {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last
}

// RunOnce performs one cycle: fetch, parse, load, save, diff, notify.
//
// The snapshot is saved before anything is diffed or sent. When the previous
// snapshot is corrupt the new one is still saved, diffing and notification
// are skipped and the returned error wraps storage.ErrCorrupt. A cycle
// started while another is running fails fast with ErrCycleInProgress.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		r.observe(metrics.ResultSkipped, 0)
		logger.Warn("Skipping cycle, previous one still running", nil)
		return nil, ErrCycleInProgress
	}
	defer r.mu.Unlock()

	res := &Result{
		CycleID:   r.newID(),
		StartedAt: r.now().UTC(),
	}
	log := logger.Default().With(logger.Fields{"cycle_id": res.CycleID})
	log.Info("Starting watch cycle", logger.Fields{"url": r.fetcher.URL()})

	err := r.cycle(ctx, res, log)
	res.Duration = r.now().Sub(res.StartedAt)

	if err != nil {
		res.Error = err.Error()
		if res.Outcome == "" {
			res.Outcome = metrics.ResultError
		}
		log.Error("Watch cycle failed", logger.Fields{
			"outcome":     res.Outcome,
			"duration_ms": res.Duration.Milliseconds(),
		}, err)
	} else {
		log.Info("Watch cycle finished", logger.Fields{
			"outcome":     res.Outcome,
			"events":      res.Snapshot.Len(),
			"new":         len(res.Diff.NewEvents),
			"changed":     len(res.Diff.ChangedEvents),
			"duration_ms": res.Duration.Milliseconds(),
		})
	}

	r.observe(res.Outcome, res.Duration)
	r.lastMu.Lock()
	r.last = res
	r.lastMu.Unlock()

	return res, err
}

func (r *Runner) cycle(ctx context.Context, res *Result, log *logger.Logger) error {
	body, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching schedule: %w", err)
	}

	if r.opts.SavePage {
		if err := r.store.SavePage(body); err != nil {
			log.Warn("Saving page dump failed", logger.Fields{"error": err.Error()})
		}
	}

	parsed, err := r.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing schedule: %w", err)
	}
	res.Blocks = parsed.Blocks
	res.Skipped = parsed.Skipped
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveMisses(parsed.Misses)
	}

	current := event.CreateSnapshot(parsed.Events, res.CycleID, parsed.ObservedAt)
	res.Snapshot = current

	previous, loadErr := r.store.LoadLatest()
	if loadErr != nil && !errors.Is(loadErr, storage.ErrCorrupt) {
		return fmt.Errorf("loading previous snapshot: %w", loadErr)
	}

	if err := r.store.Save(current); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	r.observeSnapshot(current)

	if loadErr != nil {
		res.Outcome = metrics.ResultCorrupt
		return fmt.Errorf("loading previous snapshot: %w", loadErr)
	}

	res.Diff = event.Diff(current, previous)
	res.Notified = filterDiff(res.Diff, r.opts.Filter)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveDiff(len(res.Diff.NewEvents), len(res.Diff.ChangedEvents))
	}

	log.Debug("Diff computed", logger.Fields{
		"new":              len(res.Diff.NewEvents),
		"changed":          len(res.Diff.ChangedEvents),
		"notified_new":     len(res.Notified.NewEvents),
		"notified_changed": len(res.Notified.ChangedEvents),
		"filter":           r.opts.Filter.String(),
	})

	res.Outcome = metrics.ResultOK
	if r.opts.Notifier == nil {
		return nil
	}

	report := &notifier.Report{
		CycleID:     res.CycleID,
		CheckedAt:   res.StartedAt,
		SeriesTitle: r.opts.SeriesTitle,
		ScheduleURL: r.fetcher.URL(),
		Snapshot:    current,
		Diff:        res.Notified,
	}
	if err := r.opts.Notifier.Notify(ctx, report); err != nil {
		res.Outcome = metrics.ResultError
		return fmt.Errorf("notifying: %w", err)
	}
	if report.HasUpdates() {
		res.Outcome = metrics.ResultNotified
	}
	return nil
}

func (r *Runner) observe(outcome string, d time.Duration) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveCycle(outcome, d)
	}
}

func (r *Runner) observeSnapshot(s *event.Snapshot) {
	if r.opts.Metrics == nil {
		return
	}
	r.opts.Metrics.ObserveSnapshot(s.Len(), map[string]int{
		string(event.AvailabilityActive):  s.Count(event.AvailabilityActive),
		string(event.AvailabilityReserve): s.Count(event.AvailabilityReserve),
		string(event.AvailabilityUnknown): s.Count(event.AvailabilityUnknown),
	})
}

// filterDiff keeps the new and changed games matching f, with their changes
func filterDiff(d *event.DiffResult, f *filter.Filter) *event.DiffResult {
	if f.IsEmpty() {
		return d
	}

	out := &event.DiffResult{
		NewEvents:     f.Apply(d.NewEvents),
		ChangedEvents: f.Apply(d.ChangedEvents),
		Changes:       make([]*event.EventChange, 0, len(d.Changes)),
	}

	kept := make(map[string]bool, len(out.ChangedEvents))
	for _, evt := range out.ChangedEvents {
		kept[evt.ID] = true
	}
	for _, c := range d.Changes {
		if kept[c.EventID] {
			out.Changes = append(out.Changes, c)
		}
	}
	return out
}

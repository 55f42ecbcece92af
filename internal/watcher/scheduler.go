package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quizwatch/quizwatch/internal/logger"
)

// Scheduler runs cycles on a cron schedule
type Scheduler struct {
	runner     *Runner
	spec       string
	schedule   cron.Schedule
	runOnStart bool
	location   *time.Location
}

// NewScheduler validates spec (standard cron or a descriptor such as
// "@every 30m") and binds it to r.
func NewScheduler(r *Runner, spec string, runOnStart bool, loc *time.Location) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		runner:     r,
		spec:       spec,
		schedule:   sched,
		runOnStart: runOnStart,
		location:   loc,
	}, nil
}

// Next returns the first activation after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Run blocks until ctx is done, running one cycle per activation. Overlapping
// activations are skipped. Running jobs are waited for on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runCycle(ctx) }))

	logger.Info("Scheduler started", logger.Fields{
		"spec":     s.spec,
		"timezone": s.location.String(),
		"next_run": s.Next(time.Now()).Format(time.RFC3339),
	})

	if s.runOnStart {
		s.runCycle(ctx)
	}

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	logger.Info("Scheduler stopped", nil)
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// errors are logged by the runner
	if _, err := s.runner.RunOnce(ctx); errors.Is(err, ErrCycleInProgress) {
		logger.Debug("Scheduled cycle skipped", logger.Fields{"spec": s.spec})
	}
}

// cronLogger adapts the package logger to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, kvFields(keysAndValues), err)
}

func kvFields(kv []interface{}) logger.Fields {
	fields := make(logger.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

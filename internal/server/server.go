// Package server exposes the watcher state over HTTP.
//
// Routes:
//
//	GET  /healthz           liveness plus the last cycle outcome
//	GET  /snapshot          the latest stored snapshot
//	GET  /history?limit=N   the newest N history entries (default 100)
//	GET  /metrics           Prometheus metrics
//	POST /check             run one cycle now
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/logger"
	"github.com/quizwatch/quizwatch/internal/metrics"
	"github.com/quizwatch/quizwatch/internal/storage"
	"github.com/quizwatch/quizwatch/internal/watcher"
)

const (
	defaultHistoryLimit = 100
	shutdownTimeout     = 10 * time.Second
)

// Store is the read side of the history store
type Store interface {
	LoadLatest() (*event.Snapshot, error)
	RecentHistory(n int) ([]*storage.HistoryEntry, error)
}

// Runner is the part of watcher.Runner the server needs
type Runner interface {
	RunOnce(ctx context.Context) (*watcher.Result, error)
	LastResult() *watcher.Result
}

// Server is the status HTTP server
type Server struct {
	addr      string
	store     Store
	runner    Runner
	metrics   *metrics.Metrics
	startedAt time.Time
	engine    *gin.Engine
}

// New creates the server and registers its routes. runner and m may be nil.
func New(addr string, store Store, runner Runner, m *metrics.Metrics) *Server {
	s := &Server{
		addr:      addr,
		store:     store,
		runner:    runner,
		metrics:   m,
		startedAt: time.Now().UTC(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	s.register(engine)
	s.engine = engine

	return s
}

func (s *Server) register(r *gin.Engine) {
	r.GET("/healthz", s.health)
	r.GET("/snapshot", s.snapshot)
	r.GET("/history", s.history)
	r.POST("/check", s.check)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Status server listening", logger.Fields{"addr": s.addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	data := gin.H{
		"status":     "ok",
		"started_at": s.startedAt,
	}
	if s.runner != nil {
		if last := s.runner.LastResult(); last != nil {
			data["last_cycle"] = last
		}
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) snapshot(c *gin.Context) {
	snap, err := s.store.LoadLatest()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrCorrupt) {
			status = http.StatusServiceUnavailable
		}
		fail(c, status, err.Error(), nil)
		return
	}
	ok(c, snap, map[string]any{
		"total":   snap.Len(),
		"active":  snap.Count(event.AvailabilityActive),
		"reserve": snap.Count(event.AvailabilityReserve),
	})
}

func (s *Server) history(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > storage.DefaultHistoryLimit {
			fail(c, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", storage.DefaultHistoryLimit), nil)
			return
		}
		limit = n
	}

	entries, err := s.store.RecentHistory(limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	ok(c, entries, map[string]any{"count": len(entries), "limit": limit})
}

func (s *Server) check(c *gin.Context) {
	if s.runner == nil {
		fail(c, http.StatusNotImplemented, "no runner configured", nil)
		return
	}

	res, err := s.runner.RunOnce(c.Request.Context())
	switch {
	case errors.Is(err, watcher.ErrCycleInProgress):
		fail(c, http.StatusConflict, err.Error(), nil)
	case err != nil:
		meta := map[string]any{}
		if res != nil {
			meta["cycle_id"] = res.CycleID
			meta["outcome"] = res.Outcome
		}
		fail(c, http.StatusBadGateway, err.Error(), meta)
	default:
		ok(c, res, nil)
	}
}

// requestLogger logs each request at DEBUG
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request", logger.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

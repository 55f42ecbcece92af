package cli

import (
	"fmt"
	"io"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/filter"
	"github.com/quizwatch/quizwatch/internal/logger"
	"github.com/quizwatch/quizwatch/internal/metrics"
	"github.com/quizwatch/quizwatch/internal/notifier"
	"github.com/quizwatch/quizwatch/internal/scraper"
	"github.com/quizwatch/quizwatch/internal/storage"
	"github.com/quizwatch/quizwatch/internal/watcher"
)

// app holds the components shared by the commands
type app struct {
	cfg      config.Config
	log      *logger.Logger
	store    *storage.Store
	metrics  *metrics.Metrics
	notifier *notifier.Multi
}

// loadApp reads the configuration, installs the default logger and opens
// the store.
func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	logger.SetDefault(log)

	store, err := storage.New(cfg.Storage.DataDir,
		storage.WithHistoryLimit(cfg.Storage.HistoryLimit),
		storage.WithHistoryBackend(storage.Backend(cfg.Storage.HistoryBackend)),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	logger.Debug("Configuration loaded", logger.Fields{
		"config":   opts.configPath,
		"data_dir": store.DataDir(),
		"source":   cfg.Source.URL,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		metrics: metrics.New(),
	}, nil
}

// close flushes the logger and releases the store
func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close store", logger.Fields{"error": err.Error()})
	}
	_ = a.log.Sync()
	logger.SetDefault(nil)
}

// newRunner wires fetcher, parser, filter and notifiers into a runner.
// notifyOut receives the stdout channel; notify=false stores snapshots only.
func (a *app) newRunner(notifyOut io.Writer, notify bool) (*watcher.Runner, error) {
	fetcher := scraper.NewFetcher(a.cfg.Source.URL,
		scraper.WithTimeout(a.cfg.Source.Timeout),
		scraper.WithUserAgent(a.cfg.Source.UserAgent),
		scraper.WithMaxRetries(a.cfg.Source.MaxRetries),
	)
	parser := scraper.NewParser(scraper.Options{
		Title:    a.cfg.Series.Title,
		Keywords: a.cfg.Series.Keywords,
		Origin:   a.cfg.Source.Origin,
	})

	f, err := filter.FromConfig(a.cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("building filter: %w", err)
	}
	logger.Debug("Notification filter", logger.Fields{"filter": f.String()})

	opts := watcher.Options{
		SeriesTitle: a.cfg.Series.Title,
		SavePage:    a.cfg.Source.SavePage,
		Filter:      f,
		Metrics:     a.metrics,
	}
	if notify {
		multi, err := notifier.FromConfig(a.cfg.Notify, notifyOut, a.metrics)
		if err != nil {
			return nil, fmt.Errorf("building notifiers: %w", err)
		}
		if multi.Len() > 0 {
			opts.Notifier = multi
			a.notifier = multi
		}
	}

	return watcher.NewRunner(fetcher, parser, a.store, opts), nil
}

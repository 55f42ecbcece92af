package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quizwatch/quizwatch/internal/logger"
	"github.com/quizwatch/quizwatch/internal/server"
	"github.com/quizwatch/quizwatch/internal/watcher"
)

type watchOptions struct {
	serve bool
	addr  string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check the schedule periodically until interrupted",
		Long: `Runs watch cycles on schedule.spec (for example "@every 30m") until
SIGINT or SIGTERM. With --serve, or server.enabled in the config, a status
server exposes /healthz, /snapshot, /history, /check and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Start the status server")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Status server address (overrides server.http_addr)")

	return cmd
}

func runWatch(cmd *cobra.Command, root *rootOptions, opts *watchOptions) error {
	a, err := loadApp(root)
	if err != nil {
		return err
	}
	defer a.close()

	runner, err := a.newRunner(cmd.OutOrStdout(), true)
	if err != nil {
		return err
	}

	sched, err := watcher.NewScheduler(runner, a.cfg.Schedule.Spec, a.cfg.Schedule.RunOnStart, a.cfg.Location())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.notifier != nil {
		if err := a.notifier.Verify(ctx); err != nil {
			logger.Warn("Notification channel check failed", logger.Fields{"error": err.Error()})
		}
	}

	logger.Info("Watching schedule", logger.Fields{
		"url":      a.cfg.Source.URL,
		"series":   a.cfg.Series.Title,
		"schedule": a.cfg.Schedule.Spec,
		"next_run": sched.Next(time.Now()).Format(time.RFC3339),
	})

	addr := a.cfg.Server.HTTPAddr
	if opts.addr != "" {
		addr = opts.addr
	}

	var serverErr chan error
	if opts.serve || a.cfg.Server.Enabled {
		srv := server.New(addr, a.store, runner, a.metrics)
		serverErr = make(chan error, 1)
		go func() { serverErr <- srv.Run(ctx) }()
	}

	return waitAll(ctx, stop, sched.Run, serverErr)
}

// waitAll runs the scheduler until ctx ends or the server fails, then waits
// for the server to shut down.
func waitAll(ctx context.Context, stop context.CancelFunc, run func(context.Context) error, serverErr chan error) error {
	schedErr := make(chan error, 1)
	go func() { schedErr <- run(ctx) }()

	var err error
	select {
	case err = <-schedErr:
		stop()
		if serverErr != nil {
			if sErr := <-serverErr; err == nil {
				err = sErr
			}
		}
	case sErr := <-serverErr:
		stop()
		if runErr := <-schedErr; runErr != nil {
			err = runErr
		} else {
			err = sErr
		}
	}
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	logger.Info("Watcher stopped", nil)
	return nil
}

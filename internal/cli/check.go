package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/watcher"
)

type checkOptions struct {
	format  string
	sort    string
	refresh bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one watch cycle and report new or changed games",
		Long: `Fetches the schedule once, stores the snapshot and notifies the
configured channels. Exits with 2 when new or changed games were found,
0 when nothing changed and 1 on error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "Sort games by: date, seq or availability (default: page order)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Refresh the snapshot without notifying")

	return cmd
}

// runCheck is the main command logic
func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions) error {
	format, err := ParseFormat(opts.format)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(opts.sort)
	if err != nil {
		return err
	}

	a, err := loadApp(root)
	if err != nil {
		return err
	}
	defer a.close()

	// Structured output must stay parseable, so stdout notifications move to stderr
	var notifyOut io.Writer = cmd.OutOrStdout()
	if format != FormatText {
		notifyOut = cmd.ErrOrStderr()
	}

	runner, err := a.newRunner(notifyOut, !opts.refresh)
	if err != nil {
		return err
	}

	res, err := runner.RunOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	result := newOutputResult(res, a.cfg.Series.Title)
	if opts.refresh {
		result.Refreshed = true
		result.NewEvents = []*event.Event{}
		result.ChangedEvents = []*event.Event{}
		result.Changes = nil
		result.EventCount = 0
	}
	sortEvents(result.NewEvents, order)
	sortEvents(result.ChangedEvents, order)

	if err := WriteOutput(cmd.OutOrStdout(), result, format, root.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if !opts.refresh && res.HasUpdates() {
		return errNewEvents
	}
	return nil
}

func newOutputResult(res *watcher.Result, series string) *OutputResult {
	result := &OutputResult{
		CheckedAt:     res.StartedAt,
		CycleID:       res.CycleID,
		Outcome:       res.Outcome,
		Series:        series,
		Total:         res.Snapshot.Len(),
		Active:        res.Snapshot.Count(event.AvailabilityActive),
		Reserve:       res.Snapshot.Count(event.AvailabilityReserve),
		NewEvents:     []*event.Event{},
		ChangedEvents: []*event.Event{},
	}
	if res.Diff != nil {
		result.NewEvents = append(result.NewEvents, res.Diff.NewEvents...)
		result.ChangedEvents = append(result.ChangedEvents, res.Diff.ChangedEvents...)
		result.Changes = res.Diff.Changes
	}
	result.EventCount = len(result.NewEvents) + len(result.ChangedEvents)
	return result
}

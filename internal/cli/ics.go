package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quizwatch/quizwatch/internal/calendar"
	"github.com/quizwatch/quizwatch/internal/storage"
)

type icsOptions struct {
	all    bool
	output string
}

func newICSCmd(root *rootOptions) *cobra.Command {
	opts := &icsOptions{}

	cmd := &cobra.Command{
		Use:   "ics [event-id]",
		Short: "Export games from the latest snapshot as an iCalendar file",
		Example: `  quizwatch ics game-502 > game.ics
  quizwatch ics --all --output schedule.ics`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			var ics string
			if opts.all {
				snap, err := a.store.LoadLatest()
				if err != nil {
					return err
				}
				ics = calendar.GenerateBulkICS(snap.Events, a.cfg.Series.Title, a.cfg.Location())
				if ics == "" {
					return errors.New("no games with a parseable date in the latest snapshot")
				}
			} else {
				evt, err := a.store.GetEventByID(args[0])
				if err != nil {
					if errors.Is(err, storage.ErrNotFound) {
						return fmt.Errorf("no game %q in the latest snapshot", args[0])
					}
					return err
				}
				if ics, err = calendar.GenerateICS(evt, a.cfg.Location()); err != nil {
					return err
				}
			}

			if opts.output == "" || opts.output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), ics)
				return err
			}
			if err := os.WriteFile(opts.output, []byte(ics), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", opts.output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", opts.output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Export every game of the latest snapshot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

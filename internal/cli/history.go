package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quizwatch/quizwatch/internal/storage"
)

type historyOptions struct {
	limit  int
	format string
	id     string
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently observed games from the history log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}
			if opts.limit < 1 || opts.limit > storage.DefaultHistoryLimit {
				return fmt.Errorf("--limit must be between 1 and %d", storage.DefaultHistoryLimit)
			}

			a, err := loadApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			var entries []*storage.HistoryEntry
			if opts.id == "" {
				entries, err = a.store.RecentHistory(opts.limit)
			} else {
				entries, err = historyFor(a.store, opts.id, opts.limit)
			}
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}

			return WriteHistory(cmd.OutOrStdout(), entries, format)
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Number of entries to show (1-1000)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&opts.id, "id", "", "Only show entries of this game ID")

	return cmd
}

// historyFor returns the newest limit entries of one game
func historyFor(store *storage.Store, id string, limit int) ([]*storage.HistoryEntry, error) {
	all, err := store.History()
	if err != nil {
		return nil, err
	}

	var entries []*storage.HistoryEntry
	for _, e := range all {
		if e.Event != nil && strings.EqualFold(e.Event.ID, id) {
			entries = append(entries, e)
		}
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'yaml')", s)
	}
}

// OutputResult contains data to be output by check
type OutputResult struct {
	CheckedAt     time.Time            `json:"checked_at" yaml:"checked_at"`
	CycleID       string               `json:"cycle_id" yaml:"cycle_id"`
	Outcome       string               `json:"outcome" yaml:"outcome"`
	Series        string               `json:"series" yaml:"series"`
	Total         int                  `json:"total" yaml:"total"`
	Active        int                  `json:"active" yaml:"active"`
	Reserve       int                  `json:"reserve" yaml:"reserve"`
	NewEvents     []*event.Event       `json:"new_events" yaml:"new_events"`
	ChangedEvents []*event.Event       `json:"changed_events" yaml:"changed_events"`
	Changes       []*event.EventChange `json:"changes,omitempty" yaml:"changes,omitempty"`
	EventCount    int                  `json:"event_count" yaml:"event_count"`
	Refreshed     bool                 `json:"refreshed,omitempty" yaml:"refreshed,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.Refreshed {
		fmt.Fprintf(w, "Snapshot refreshed: %d games stored.\n", result.Total)
		return nil
	}

	if result.EventCount == 0 {
		fmt.Fprintf(w, "No new or changed games found (%d tracked).\n", result.Total)
		return nil
	}

	changes := make(map[string]*event.EventChange, len(result.Changes))
	for _, c := range result.Changes {
		changes[c.EventID] = c
	}

	for _, evt := range result.ChangedEvents {
		fmt.Fprintf(w, "CHANGED: %s", describe(evt))
		if c := changes[evt.ID]; c != nil {
			fmt.Fprintf(w, " (%s -> %s)", c.OldValue, c.NewValue)
		}
		fmt.Fprintln(w)
		if verbose {
			writeDetails(w, evt)
		}
	}
	for _, evt := range result.NewEvents {
		fmt.Fprintf(w, "NEW: %s [%s]\n", describe(evt), evt.Availability)
		if verbose {
			writeDetails(w, evt)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d new, %d changed, %d tracked (%d open, %d reserve)\n",
		len(result.NewEvents), len(result.ChangedEvents), result.Total, result.Active, result.Reserve)
	return nil
}

func describe(evt *event.Event) string {
	name := strings.TrimSpace(evt.Title + " " + evt.SequenceNumber)
	when := strings.TrimSpace(evt.Date + " " + evt.Time)
	return fmt.Sprintf("%s, %s", name, when)
}

func writeDetails(w io.Writer, evt *event.Event) {
	fmt.Fprintf(w, "     ID: %s\n", evt.ID)
	if evt.Place != "" && evt.Place != event.PlaceNotSpecified {
		fmt.Fprintf(w, "     Place: %s\n", evt.Place)
	}
	if evt.Price != "" {
		fmt.Fprintf(w, "     Price: %s\n", evt.Price)
	}
	if evt.RegistrationURL != "" && evt.RegistrationURL != event.NoRegistrationURL {
		fmt.Fprintf(w, "     URL: %s\n", evt.RegistrationURL)
	}
}

// WriteHistory writes history entries, oldest first
func WriteHistory(w io.Writer, entries []*storage.HistoryEntry, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, entries)
	case FormatYAML:
		return writeYAML(w, entries)
	case FormatText:
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return nil
	}
	for _, e := range entries {
		if e.Event == nil {
			continue
		}
		fmt.Fprintf(w, "%-16s %-8s %s\n", humanize.Time(e.RecordedAt), e.Event.Availability, describe(e.Event))
	}
	fmt.Fprintf(w, "\n%s entries\n", humanize.Comma(int64(len(entries))))
	return nil
}

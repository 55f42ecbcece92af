package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/quizwatch/quizwatch/internal/logger"
)

// HistoryLog is an append-only, size-bounded log of observed events
type HistoryLog interface {
	// Append adds entries and drops the oldest ones beyond limit.
	Append(entries []*HistoryEntry, limit int) error
	// Entries returns the log, oldest first.
	Entries() ([]*HistoryEntry, error)
	Close() error
}

// jsonHistory keeps the log as one JSON array, rewritten on every append
type jsonHistory struct {
	path string
}

func newJSONHistory(path string) *jsonHistory {
	return &jsonHistory{path: path}
}

func (h *jsonHistory) Entries() ([]*HistoryEntry, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var entries []*HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing history: %w: %v", ErrCorrupt, err)
	}
	if entries == nil {
		entries = []*HistoryEntry{}
	}
	if err := checkEntries(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append starts a fresh log when the current one is corrupt, keeping the
// old file next to it as history.json.corrupt-<unix seconds>.
func (h *jsonHistory) Append(entries []*HistoryEntry, limit int) error {
	existing, err := h.Entries()
	if errors.Is(err, ErrCorrupt) {
		aside := fmt.Sprintf("%s.corrupt-%d", h.path, time.Now().Unix())
		if rerr := os.Rename(h.path, aside); rerr != nil {
			return fmt.Errorf("moving corrupt history aside: %w", rerr)
		}
		logger.Warn("History log was corrupt, starting a new one", logger.Fields{
			"error":    err.Error(),
			"moved_to": aside,
		})
		existing, err = []*HistoryEntry{}, nil
	}
	if err != nil {
		return err
	}

	all := append(existing, entries...)
	all = truncate(all, limit)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return writeFileAtomic(h.path, data)
}

func (h *jsonHistory) Close() error {
	return nil
}

// checkEntries rejects entries that decoded to null
func checkEntries(entries []*HistoryEntry) error {
	for i, e := range entries {
		if e == nil || e.Event == nil {
			return fmt.Errorf("parsing history: %w: entry %d has no event", ErrCorrupt, i)
		}
	}
	return nil
}

// truncate keeps the last limit entries
func truncate(entries []*HistoryEntry, limit int) []*HistoryEntry {
	if limit > 0 && len(entries) > limit {
		return entries[len(entries)-limit:]
	}
	return entries
}

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/logger"
)

const (
	LatestFile      = "latest.json"
	HistoryJSONFile = "history.json"
	HistoryDBFile   = "history.db"
	PageFile        = "last_page.html"

	// DefaultHistoryLimit is also the largest allowed history window
	DefaultHistoryLimit = 1000
)

var (
	// ErrCorrupt is returned when a stored file exists but cannot be decoded
	ErrCorrupt = errors.New("stored data is corrupt")
	// ErrNotFound is returned by GetEventByID for unknown IDs
	ErrNotFound = errors.New("event not found")
)

// Backend selects the history log implementation
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

// HistoryEntry is one event as it was observed in a given cycle
type HistoryEntry struct {
	RecordedAt time.Time    `json:"recorded_at" yaml:"recorded_at"`
	CycleID    string       `json:"cycle_id,omitempty" yaml:"cycle_id,omitempty"`
	Event      *event.Event `json:"event" yaml:"event"`
}

// Store handles persistence of the latest snapshot and the history log
type Store struct {
	dataDir string
	limit   int
	backend Backend
	history HistoryLog
}

// Option configures a Store
type Option func(*Store)

// WithHistoryLimit bounds the history log to the n most recent entries (1..1000)
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// WithHistoryBackend selects the history log backend
func WithHistoryBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// New opens (and creates if needed) a store in dataDir
func New(dataDir string, opts ...Option) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	s := &Store{
		dataDir: dataDir,
		limit:   DefaultHistoryLimit,
		backend: BackendJSON,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.limit < 1 || s.limit > DefaultHistoryLimit {
		return nil, fmt.Errorf("history limit must be between 1 and %d, got %d", DefaultHistoryLimit, s.limit)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	switch s.backend {
	case BackendJSON, "":
		s.history = newJSONHistory(filepath.Join(dataDir, HistoryJSONFile))
	case BackendSQLite:
		h, err := newSQLiteHistory(filepath.Join(dataDir, HistoryDBFile))
		if err != nil {
			return nil, err
		}
		s.history = h
	default:
		return nil, fmt.Errorf("unknown history backend %q", s.backend)
	}

	return s, nil
}

// Close releases the history backend
func (s *Store) Close() error {
	return s.history.Close()
}

// DataDir returns the resolved data directory
func (s *Store) DataDir() string {
	return s.dataDir
}

// HistoryLimit returns the configured history bound
func (s *Store) HistoryLimit() int {
	return s.limit
}

// LoadLatest loads the snapshot saved by the previous cycle. A missing file
// yields an empty snapshot; an unreadable one yields an error wrapping ErrCorrupt.
func (s *Store) LoadLatest() (*event.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, LatestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return event.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, fmt.Errorf("parsing %s: %w: not a JSON object", LatestFile, ErrCorrupt)
	}

	var snapshot event.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing %s: %w: %v", LatestFile, ErrCorrupt, err)
	}
	for i, evt := range snapshot.Events {
		if evt == nil {
			return nil, fmt.Errorf("parsing %s: %w: event %d is null", LatestFile, ErrCorrupt, i)
		}
	}
	if snapshot.Events == nil {
		snapshot.Events = make([]*event.Event, 0)
	}
	return &snapshot, nil
}

// Save replaces latest.json with snapshot and appends its events to the
// history log. Only the latest.json write can fail Save; history errors are
// logged.
func (s *Store) Save(snapshot *event.Snapshot) error {
	if snapshot == nil {
		snapshot = event.NewSnapshot()
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(s.dataDir, LatestFile), data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	recordedAt := snapshot.ObservedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	entries := make([]*HistoryEntry, 0, len(snapshot.Events))
	for _, evt := range snapshot.Events {
		entries = append(entries, &HistoryEntry{
			RecordedAt: recordedAt,
			CycleID:    snapshot.CycleID,
			Event:      evt,
		})
	}

	if len(entries) > 0 {
		if err := s.history.Append(entries, s.limit); err != nil {
			logger.Warn("Appending to history log failed", logger.Fields{
				"backend": string(s.backend),
				"entries": len(entries),
				"error":   err.Error(),
			})
		}
	}
	return nil
}

// History returns the history log, oldest entry first
func (s *Store) History() ([]*HistoryEntry, error) {
	return s.history.Entries()
}

// RecentHistory returns at most n of the newest entries, oldest first.
// n <= 0 returns the whole log.
func (s *Store) RecentHistory(n int) ([]*HistoryEntry, error) {
	entries, err := s.history.Entries()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// GetEventByID retrieves an event by ID from the latest snapshot
func (s *Store) GetEventByID(eventID string) (*event.Event, error) {
	snapshot, err := s.LoadLatest()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	if evt := snapshot.Find(eventID); evt != nil {
		return evt, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
}

// SavePage keeps a copy of the last fetched page for debugging extraction
func (s *Store) SavePage(body []byte) error {
	if err := writeFileAtomic(filepath.Join(s.dataDir, PageFile), body); err != nil {
		return fmt.Errorf("writing page dump: %w", err)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// sqliteHistory stores one row per entry and trims old rows in the same transaction
type sqliteHistory struct {
	db *sql.DB
}

func newSQLiteHistory(path string) (*sqliteHistory, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createHistoryTable(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteHistory{db: db}, nil
}

func createHistoryTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS history(
	  id          INTEGER PRIMARY KEY AUTOINCREMENT,
	  recorded_at TEXT NOT NULL,
	  cycle_id    TEXT NOT NULL DEFAULT '',
	  event_id    TEXT NOT NULL,
	  event_json  TEXT NOT NULL CHECK (json_valid(event_json))
	);
	CREATE INDEX IF NOT EXISTS idx_history_event ON history(event_id);
	`)
	if err != nil {
		return fmt.Errorf("creating history table: %w", err)
	}
	return nil
}

func (h *sqliteHistory) Append(entries []*HistoryEntry, limit int) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO history(recorded_at, cycle_id, event_id, event_json) VALUES(?,?,?,json(?))`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Event == nil {
			continue
		}
		data, err := json.Marshal(e.Event)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encoding event %s: %w", e.Event.ID, err)
		}
		if _, err := stmt.Exec(e.RecordedAt.UTC().Format(time.RFC3339Nano), e.CycleID, e.Event.ID, string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting event %s: %w", e.Event.ID, err)
		}
	}

	if limit > 0 {
		if _, err := tx.Exec(`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`, limit); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("truncating history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

func (h *sqliteHistory) Entries() ([]*HistoryEntry, error) {
	rows, err := h.db.Query(`SELECT recorded_at, cycle_id, event_json FROM history ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []*HistoryEntry{}
	for rows.Next() {
		var recordedAt, cycleID, eventJSON string
		if err := rows.Scan(&recordedAt, &cycleID, &eventJSON); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at %q: %w: %v", recordedAt, ErrCorrupt, err)
		}
		entry := &HistoryEntry{RecordedAt: ts, CycleID: cycleID}
		if err := json.Unmarshal([]byte(eventJSON), &entry.Event); err != nil {
			return nil, fmt.Errorf("decoding history event: %w: %v", ErrCorrupt, err)
		}
		if entry.Event == nil {
			return nil, fmt.Errorf("decoding history event: %w: null event", ErrCorrupt)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (h *sqliteHistory) Close() error {
	return h.db.Close()
}

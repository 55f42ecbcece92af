// Package storage persists quiz schedule snapshots and the trailing history log.
//
// The latest snapshot lives in latest.json inside the data directory and is
// replaced atomically on every cycle. Each saved event is also appended to a
// size-bounded history log (history.json, or history.db when the SQLite
// backend is selected) that keeps only the most recent entries. The history
// log is for audit only; change detection always diffs against latest.json.
package storage

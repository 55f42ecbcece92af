// Package cli implements the command-line interface for quizwatch.
//
// The cli package provides the Cobra-based commands: check (one cycle with
// exit codes), watch (scheduled cycles plus the optional status server),
// history, ics and encrypt. It wires configuration, logging, storage, the
// scraper, filters and notifiers into a watcher.Runner.
package cli

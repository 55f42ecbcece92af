// Package event provides the canonical quiz game record and change detection.
//
// Each Event carries a content hash over its identity-relevant fields and a
// display ID derived from the game's sequence number (or its date, time and
// place when the number is missing). Snapshots of one observation cycle are
// compared with Diff to find games that are new or whose availability changed.
package event

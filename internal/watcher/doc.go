// Package watcher runs the observation cycle and schedules it.
//
// A cycle fetches the schedule page, assembles the tracked games into a
// snapshot, saves it, diffs it against the previous snapshot and hands the
// filtered result to the notifier. Only one cycle runs at a time.
package watcher

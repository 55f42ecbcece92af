package event

import (
	"time"
)

// Snapshot is the ordered list of events produced by one observation cycle
type Snapshot struct {
	CycleID    string    `json:"cycle_id,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	Events     []*Event  `json:"events"`
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Events: make([]*Event, 0),
	}
}

// CreateSnapshot creates a snapshot from the events of one cycle.
// Events sharing a content hash are kept once, first occurrence wins.
func CreateSnapshot(events []*Event, cycleID string, observedAt time.Time) *Snapshot {
	snap := NewSnapshot()
	snap.CycleID = cycleID
	snap.ObservedAt = observedAt

	seen := make(map[string]bool, len(events))
	for _, evt := range events {
		if evt == nil || seen[evt.ContentHash] {
			continue
		}
		seen[evt.ContentHash] = true
		snap.Events = append(snap.Events, evt)
	}

	return snap
}

// IsEmpty reports whether the snapshot holds no events. A nil snapshot is empty.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Events) == 0
}

// Len returns the number of events
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Events)
}

// Find returns the event with the given ID, or nil
func (s *Snapshot) Find(id string) *Event {
	if s == nil {
		return nil
	}
	for _, evt := range s.Events {
		if evt != nil && evt.ID == id {
			return evt
		}
	}
	return nil
}

// Count returns how many events have the given availability
func (s *Snapshot) Count(a Availability) int {
	n := 0
	if s == nil {
		return n
	}
	for _, evt := range s.Events {
		if evt != nil && evt.Availability == a {
			n++
		}
	}
	return n
}

// EventChange records an availability transition of a numbered game
type EventChange struct {
	EventID        string       `json:"event_id" yaml:"event_id"`
	SequenceNumber string       `json:"sequence_number" yaml:"sequence_number"`
	ChangeType     string       `json:"change_type" yaml:"change_type"`
	OldValue       Availability `json:"old_value" yaml:"old_value"`
	NewValue       Availability `json:"new_value" yaml:"new_value"`
	DetectedAt     time.Time    `json:"detected_at" yaml:"detected_at"`
}

// ChangeTypeAvailability is the only change type Diff reports
const ChangeTypeAvailability = "availability"

// DiffResult contains the results of comparing two snapshots
type DiffResult struct {
	NewEvents     []*Event       `json:"new_events"`
	ChangedEvents []*Event       `json:"changed_events"`
	Changes       []*EventChange `json:"changes"`
}

// HasUpdates reports whether anything is new or changed
func (r *DiffResult) HasUpdates() bool {
	return r != nil && (len(r.NewEvents) > 0 || len(r.ChangedEvents) > 0)
}

// Diff compares the current snapshot against the previous one.
//
// An event is changed when its non-empty sequence number matches a previous
// event whose availability differs. An event is new when its content hash
// does not occur in previous and it is not changed. Both lists keep the order
// of current. With an empty previous snapshot every event is new.
func Diff(current, previous *Snapshot) *DiffResult {
	result := &DiffResult{
		NewEvents:     make([]*Event, 0),
		ChangedEvents: make([]*Event, 0),
		Changes:       make([]*EventChange, 0),
	}

	if current.IsEmpty() {
		return result
	}

	if previous.IsEmpty() {
		result.NewEvents = append(result.NewEvents, current.Events...)
		return result
	}

	hashes := make(map[string]bool, len(previous.Events))
	bySequence := make(map[string]*Event, len(previous.Events))
	for _, evt := range previous.Events {
		if evt == nil {
			continue
		}
		hashes[evt.ContentHash] = true
		if evt.SequenceNumber == "" {
			continue
		}
		if _, exists := bySequence[evt.SequenceNumber]; !exists {
			bySequence[evt.SequenceNumber] = evt
		}
	}

	detectedAt := current.ObservedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	for _, evt := range current.Events {
		if evt == nil {
			continue
		}
		if change := detectChange(bySequence, evt, detectedAt); change != nil {
			result.ChangedEvents = append(result.ChangedEvents, evt)
			result.Changes = append(result.Changes, change)
			continue
		}

		if !hashes[evt.ContentHash] {
			result.NewEvents = append(result.NewEvents, evt)
		}
	}

	return result
}

// detectChange returns the availability transition of evt, or nil
func detectChange(bySequence map[string]*Event, evt *Event, detectedAt time.Time) *EventChange {
	if evt.SequenceNumber == "" {
		return nil
	}

	prev, exists := bySequence[evt.SequenceNumber]
	if !exists || prev.Availability == evt.Availability {
		return nil
	}

	return &EventChange{
		EventID:        evt.ID,
		SequenceNumber: evt.SequenceNumber,
		ChangeType:     ChangeTypeAvailability,
		OldValue:       prev.Availability,
		NewValue:       evt.Availability,
		DetectedAt:     detectedAt,
	}
}

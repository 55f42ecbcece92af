package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quizwatch/quizwatch/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone           SortOrder = ""
	SortByDate         SortOrder = "date"
	SortBySequence     SortOrder = "seq"
	SortByAvailability SortOrder = "availability"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNone, SortByDate, SortBySequence, SortByAvailability:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'seq' or 'availability')", s)
	}
}

// sortEvents sorts a slice of events based on the specified sort order.
// Page order is kept for SortNone.
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortBySequence:
		sort.SliceStable(events, func(i, j int) bool {
			si, sj := sequence(events[i]), sequence(events[j])
			if si != sj {
				// Unnumbered games go last
				if si < 0 || sj < 0 {
					return sj < 0
				}
				return si < sj
			}
			return compareByDate(events[i], events[j])
		})
	case SortByAvailability:
		sort.SliceStable(events, func(i, j int) bool {
			ri, rj := availabilityRank(events[i].Availability), availabilityRank(events[j].Availability)
			if ri != rj {
				return ri < rj
			}
			// If availability is equal, sort by date
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate compares two events by their date and time.
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	dateI := event.ParseDateTime(i.Date, i.Time, nil)
	dateJ := event.ParseDateTime(j.Date, j.Time, nil)

	// If both dates are valid, compare them
	if !dateI.IsZero() && !dateJ.IsZero() {
		return dateI.Before(dateJ)
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}

// sequence returns the game number, or -1 when there is none
func sequence(evt *event.Event) int {
	digits := strings.TrimLeft(evt.SequenceNumber, "#№ ")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return n
}

func availabilityRank(a event.Availability) int {
	switch a {
	case event.AvailabilityActive:
		return 0
	case event.AvailabilityReserve:
		return 1
	default:
		return 2
	}
}

// Package filter narrows the games that are reported to notification channels.
//
// Filters never change what is stored: every tracked game is saved and
// diffed, and only the notified subset is filtered. Criteria:
//   - Only available games (registration open)
//   - Exclude games that only offer a reserve list
//   - Future window in days
//   - Date range (from/to dates)
//   - Maximum price per person
//   - Places (substring matching on venue name or address, case-insensitive)
//   - Weekends only (Saturday/Sunday)
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.OnlyAvailable = true
//	f.Places = []string{"Янтарь"}
//
//	filtered := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quizwatch/quizwatch/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Availability filtering
	OnlyAvailable  bool `json:"only_available,omitempty"`
	ExcludeReserve bool `json:"exclude_reserve,omitempty"`

	// Games more than FutureDays ahead are dropped; 0 disables the window
	FutureDays int `json:"future_days,omitempty"`

	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Weekend-only filtering (Saturday/Sunday)
	WeekendsOnly bool `json:"weekends_only,omitempty"`

	// Venue filtering (case-insensitive substring match on place or address)
	Places []string `json:"places,omitempty"`

	// Games with a known price above MaxPrice are dropped; nil disables
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`

	now func() time.Time
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all events until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Places: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
// Returns true if the filter would match all events. A nil filter is empty.
func (f *Filter) IsEmpty() bool {
	return f == nil || !f.OnlyAvailable &&
		!f.ExcludeReserve &&
		f.FutureDays <= 0 &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		!f.WeekendsOnly &&
		len(f.Places) == 0 &&
		f.MaxPrice == nil
}

func (f *Filter) today() time.Time {
	now := time.Now
	if f.now != nil {
		now = f.now
	}
	return now().UTC().Truncate(24 * time.Hour)
}

// Matches checks if an event matches all active filter criteria.
// An empty filter matches all events.
//
// Matching logic:
//   - OnlyAvailable: availability must be active
//   - ExcludeReserve: availability must not be reserve
//   - FutureDays, DateFrom, DateTo, WeekendsOnly: apply only when the date parses
//   - Places: place or address must contain at least one entry
//   - MaxPrice: applies only when a price can be read from the price text
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	if f.OnlyAvailable && !evt.IsAvailable {
		return false
	}
	if f.ExcludeReserve && evt.Availability == event.AvailabilityReserve {
		return false
	}

	eventDate := event.ParseDate(evt.Date)
	if !eventDate.IsZero() {
		today := f.today()
		if f.FutureDays > 0 {
			if eventDate.Before(today) || eventDate.After(today.AddDate(0, 0, f.FutureDays)) {
				return false
			}
		}
		if f.DateFrom != nil && eventDate.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && eventDate.After(*f.DateTo) {
			return false
		}
		if f.WeekendsOnly {
			if wd := eventDate.Weekday(); wd != time.Saturday && wd != time.Sunday {
				return false
			}
		}
	}

	if len(f.Places) > 0 {
		matched := false
		venue := strings.ToLower(evt.Place + " " + evt.Address)
		for _, p := range f.Places {
			if strings.Contains(venue, strings.ToLower(strings.TrimSpace(p))) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.MaxPrice != nil {
		if price, ok := ParsePrice(evt.Price); ok && price.GreaterThan(*f.MaxPrice) {
			return false
		}
	}

	return true
}

// Apply applies the filter to a list of events and returns only matching events.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Returns "No active filters" if the filter is empty.
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.OnlyAvailable {
		parts = append(parts, "Only available")
	}
	if f.ExcludeReserve {
		parts = append(parts, "No reserve")
	}
	if f.FutureDays > 0 {
		parts = append(parts, fmt.Sprintf("Next %d days", f.FutureDays))
	}
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}
	if len(f.Places) > 0 {
		parts = append(parts, fmt.Sprintf("Places: %s", strings.Join(f.Places, ", ")))
	}
	if f.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("Max price: %s ₽", f.MaxPrice.String()))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		OnlyAvailable:  f.OnlyAvailable,
		ExcludeReserve: f.ExcludeReserve,
		FutureDays:     f.FutureDays,
		WeekendsOnly:   f.WeekendsOnly,
		now:            f.now,
	}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}
	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}
	if f.MaxPrice != nil {
		mp := *f.MaxPrice
		clone.MaxPrice = &mp
	}

	clone.Places = make([]string, len(f.Places))
	copy(clone.Places, f.Places)

	return clone
}

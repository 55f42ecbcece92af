package event

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	// PlaceNotSpecified is stored in Place and Address when no candidate text was found.
	PlaceNotSpecified = "Не указано"
	// NoRegistrationURL is stored when a block has no usable registration link.
	NoRegistrationURL = "#"
)

// Availability describes whether registration for a game is open.
type Availability string

const (
	AvailabilityActive  Availability = "active"
	AvailabilityReserve Availability = "reserve"
	AvailabilityUnknown Availability = "unknown"
)

// Valid reports whether a is one of the three known values.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityActive, AvailabilityReserve, AvailabilityUnknown:
		return true
	}
	return false
}

// UnmarshalJSON maps empty or unrecognized values to AvailabilityUnknown so a
// decoded Event never carries an out-of-range availability.
func (a *Availability) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Availability(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		v = AvailabilityUnknown
	}
	*a = v
	return nil
}

// Event is one observed game of the tracked series
type Event struct {
	ID              string       `json:"id" yaml:"id"`
	Title           string       `json:"title" yaml:"title"`
	SequenceNumber  string       `json:"sequence_number" yaml:"sequence_number"`
	Date            string       `json:"date" yaml:"date"`
	Time            string       `json:"time" yaml:"time"`
	Place           string       `json:"place" yaml:"place"`
	Address         string       `json:"address" yaml:"address"`
	Price           string       `json:"price" yaml:"price"`
	StatusText      string       `json:"status_text" yaml:"status_text"`
	ButtonLabel     string       `json:"button_label" yaml:"button_label"`
	Availability    Availability `json:"availability" yaml:"availability"`
	IsAvailable     bool         `json:"is_available" yaml:"is_available"`
	RegistrationURL string       `json:"registration_url" yaml:"registration_url"`
	ObservedAt      time.Time    `json:"observed_at" yaml:"observed_at"`
	ContentHash     string       `json:"content_hash" yaml:"content_hash"`
}

// hashSeparator keeps ("a", "bc") and ("ab", "c") from hashing alike.
const hashSeparator = "\x1f"

// ContentHash computes the identity digest of an event. Only title, sequence
// number, date, time, place, status text and availability take part.
func ContentHash(e *Event) string {
	h := sha1.New()
	h.Write([]byte(strings.Join([]string{
		e.Title,
		e.SequenceNumber,
		e.Date,
		e.Time,
		e.Place,
		e.StatusText,
		string(e.Availability),
	}, hashSeparator)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GenerateID derives a display identifier. The sequence number wins when it
// has digits; otherwise the normalized date and time are used, extended with
// the place so two unnumbered games at the same slot in different venues
// stay apart.
func GenerateID(sequenceNumber, date, timeText, place string) string {
	if digits := onlyDigits(sequenceNumber); digits != "" {
		return "game-" + digits
	}

	parts := []string{"dt", normalizeKey(date), normalizeKey(timeText)}
	if place != "" && place != PlaceNotSpecified {
		parts = append(parts, normalizeKey(place))
	}
	return strings.Join(parts, "-")
}

// Finalize fills the derived fields (availability flags, ID, hash) from the
// extracted ones. Assemblers call it once after setting every source field.
func (e *Event) Finalize() {
	e.Availability, e.IsAvailable = ClassifyAvailability(e.ButtonLabel, e.StatusText)
	e.ID = GenerateID(e.SequenceNumber, e.Date, e.Time, e.Place)
	e.ContentHash = ContentHash(e)
}

// normalizeKey lowercases s and joins its letter/digit runs with '_'.
func normalizeKey(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "_")
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

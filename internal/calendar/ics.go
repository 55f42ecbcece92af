// Package calendar renders games as iCalendar (.ics) documents.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quizwatch/quizwatch/internal/event"
)

// GameDuration is the assumed length of one game
const GameDuration = 2*time.Hour + 30*time.Minute

// maxLineOctets is the RFC 5545 content line limit, excluding CRLF
const maxLineOctets = 75

// ErrNoDate is returned when the game date cannot be parsed
var ErrNoDate = errors.New("event date cannot be parsed")

// GenerateICS generates an iCalendar (.ics) file for a game. Times are read
// in loc. Games without a time become all-day entries.
func GenerateICS(evt *event.Event, loc *time.Location) (string, error) {
	return generateICS(evt, loc, time.Now())
}

func generateICS(evt *event.Event, loc *time.Location, now time.Time) (string, error) {
	w := &writer{}
	w.header("")
	if err := w.event(evt, loc, now); err != nil {
		return "", err
	}
	w.line("END:VCALENDAR")
	return w.String(), nil
}

// GenerateBulkICS generates one calendar holding every game whose date can
// be parsed. Returns an empty string when no game qualifies.
func GenerateBulkICS(events []*event.Event, name string, loc *time.Location) string {
	return generateBulkICS(events, name, loc, time.Now())
}

func generateBulkICS(events []*event.Event, name string, loc *time.Location, now time.Time) string {
	w := &writer{}
	w.header(name)
	written := 0
	for _, evt := range events {
		if err := w.event(evt, loc, now); err != nil {
			continue
		}
		written++
	}
	if written == 0 {
		return ""
	}
	w.line("END:VCALENDAR")
	return w.String()
}

type writer struct {
	strings.Builder
}

func (w *writer) line(format string, args ...any) {
	w.WriteString(foldLine(fmt.Sprintf(format, args...)))
	w.WriteString("\r\n")
}

func (w *writer) header(name string) {
	w.line("BEGIN:VCALENDAR")
	w.line("VERSION:2.0")
	w.line("PRODID:-//quizwatch//quizwatch//RU")
	w.line("CALSCALE:GREGORIAN")
	w.line("METHOD:PUBLISH")
	if name != "" {
		w.line("X-WR-CALNAME:%s", escapeICS(name))
	}
}

// event writes one VEVENT. Nothing is written when the date is unparseable.
func (w *writer) event(evt *event.Event, loc *time.Location, now time.Time) error {
	if loc == nil {
		loc = time.UTC
	}

	start := event.ParseDateTime(evt.Date, evt.Time, loc)
	if start.IsZero() {
		return fmt.Errorf("%w: %q", ErrNoDate, evt.Date)
	}

	w.line("BEGIN:VEVENT")
	w.line("UID:%s@quizwatch", evt.ID)
	w.line("DTSTAMP:%s", formatICSTime(now))

	if evt.Time == "" {
		w.line("DTSTART;VALUE=DATE:%s", start.Format("20060102"))
		w.line("DTEND;VALUE=DATE:%s", start.AddDate(0, 0, 1).Format("20060102"))
	} else {
		w.line("DTSTART:%s", formatICSTime(start))
		w.line("DTEND:%s", formatICSTime(start.Add(GameDuration)))
	}

	summary := evt.Title
	if evt.SequenceNumber != "" {
		summary += " " + evt.SequenceNumber
	}
	w.line("SUMMARY:%s", escapeICS(summary))

	var desc []string
	desc = append(desc, "Дата: "+strings.TrimSpace(evt.Date+" "+evt.Time))
	if evt.Price != "" {
		desc = append(desc, "Стоимость: "+evt.Price)
	}
	if evt.StatusText != "" {
		desc = append(desc, "Статус: "+evt.StatusText)
	}
	if hasURL(evt) {
		desc = append(desc, "", "Запись: "+evt.RegistrationURL)
	}
	w.line("DESCRIPTION:%s", escapeICS(strings.Join(desc, "\n")))

	if l := location(evt); l != "" {
		w.line("LOCATION:%s", escapeICS(l))
	}
	if hasURL(evt) {
		w.line("URL:%s", evt.RegistrationURL)
	}

	status := "CONFIRMED"
	if evt.Availability == event.AvailabilityReserve {
		status = "TENTATIVE"
	}
	w.line("STATUS:%s", status)
	w.line("SEQUENCE:0")
	w.line("TRANSP:OPAQUE")
	w.line("END:VEVENT")
	return nil
}

func hasURL(evt *event.Event) bool {
	return evt.RegistrationURL != "" && evt.RegistrationURL != event.NoRegistrationURL
}

func location(evt *event.Event) string {
	var parts []string
	for _, s := range []string{evt.Place, evt.Address} {
		if s != "" && s != event.PlaceNotSpecified {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// foldLine splits a content line into 75-octet chunks joined by CRLF and a
// space, never inside a UTF-8 sequence.
func foldLine(s string) string {
	if len(s) <= maxLineOctets {
		return s
	}

	var b strings.Builder
	limit := maxLineOctets
	n := 0
	for _, r := range s {
		size := utf8.RuneLen(r)
		if n+size > limit {
			b.WriteString("\r\n ")
			n = 0
			limit = maxLineOctets - 1
		}
		b.WriteRune(r)
		n += size
	}
	return b.String()
}

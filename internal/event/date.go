package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthPrefixes maps the first three letters of a Russian month name
// (nominative or genitive) to the month.
var monthPrefixes = map[string]time.Month{
	"янв": time.January,
	"фев": time.February,
	"мар": time.March,
	"апр": time.April,
	"мая": time.May,
	"май": time.May,
	"июн": time.June,
	"июл": time.July,
	"авг": time.August,
	"сен": time.September,
	"окт": time.October,
	"ноя": time.November,
	"дек": time.December,
}

var englishMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// LookupMonth resolves a Russian or English month name, full or abbreviated
// ("июня", "Июнь", "jun", "June").
func LookupMonth(word string) (time.Month, bool) {
	r := []rune(strings.ToLower(strings.TrimSpace(word)))
	if len(r) < 3 {
		return 0, false
	}
	prefix := string(r[:3])
	if m, ok := monthPrefixes[prefix]; ok {
		return m, true
	}
	m, ok := englishMonths[prefix]
	return m, ok
}

var (
	dayMonthPattern = regexp.MustCompile(`(?i)(\d{1,2})\s+([а-яё]{3,})\.?(?:\s+(\d{4}))?`)
	clockPattern    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// yearRollover is how far in the past a year-less date may lie before it is
// taken to mean next year. Schedules list games a few months ahead and keep
// finished games only briefly.
const yearRollover = 60 * 24 * time.Hour

// ParseDate attempts to parse a schedule date such as "15 июня, Воскресенье"
// into a time.Time at midnight UTC. Dates without a year get the year that
// puts them closest ahead of now. Returns time.Time{} if parsing fails.
func ParseDate(dateText string) time.Time {
	return parseDateAt(dateText, time.Now().UTC())
}

func parseDateAt(dateText string, now time.Time) time.Time {
	m := dayMonthPattern.FindStringSubmatch(dateText)
	if m == nil {
		return time.Time{}
	}

	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}
	}

	month, ok := monthPrefixes[string([]rune(strings.ToLower(m[2]))[:3])]
	if !ok {
		return time.Time{}
	}

	if m[3] != "" {
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	t := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if t.Before(now.Add(-yearRollover)) {
		t = t.AddDate(1, 0, 0)
	}
	return t
}

// ParseDateTime combines the date and the "HH:MM" time of an event in loc.
// A missing or unparseable time yields midnight. Returns time.Time{} if the
// date cannot be parsed.
func ParseDateTime(dateText, timeText string, loc *time.Location) time.Time {
	d := ParseDate(dateText)
	if d.IsZero() {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}

	hour, minute := 0, 0
	if m := clockPattern.FindStringSubmatch(timeText); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h < 24 && mi < 60 {
			hour, minute = h, mi
		}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
}

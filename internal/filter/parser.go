package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/event"
)

var (
	// "15-30 июня", "jun 1-15"
	sameMonthRange = regexp.MustCompile(`(?i)^(\d{1,2})\s*-\s*(\d{1,2})\s+([a-zа-яё]+)\.?$|^([a-zа-яё]+)\.?\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	// "1 июня - 15 июля", "jun 1 - jul 15"
	crossMonthRange = regexp.MustCompile(`(?i)^(\d{1,2})\s+([a-zа-яё]+)\.?\s*-\s*(\d{1,2})\s+([a-zа-яё]+)\.?$|^([a-zа-яё]+)\.?\s+(\d{1,2})\s*-\s*([a-zа-яё]+)\.?\s+(\d{1,2})$`)
	// "июнь", "june"
	wholeMonth = regexp.MustCompile(`(?i)^([a-zа-яё]+)$`)

	// leading amount of a price text like "500 ₽ / чел" or "1 200 руб."
	priceAmount = regexp.MustCompile(`\d[\d\s\x{00a0}]*(?:[.,]\d+)?`)
)

// FromConfig builds a filter from the filter section of the configuration
func FromConfig(cfg config.FilterConfig) (*Filter, error) {
	f := NewFilter()
	f.OnlyAvailable = cfg.OnlyAvailable
	f.ExcludeReserve = cfg.ExcludeReserve
	f.FutureDays = cfg.FutureDays
	f.WeekendsOnly = cfg.WeekendsOnly

	for _, p := range cfg.Places {
		if p = strings.TrimSpace(p); p != "" {
			f.Places = append(f.Places, p)
		}
	}

	if s := strings.TrimSpace(cfg.MaxPrice); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid max_price %q: %w", cfg.MaxPrice, err)
		}
		f.MaxPrice = &d
	}

	if s := strings.TrimSpace(cfg.DateRange); s != "" {
		from, to, err := ParseDateRange(s)
		if err != nil {
			return nil, fmt.Errorf("invalid date_range %q: %w", cfg.DateRange, err)
		}
		f.DateFrom, f.DateTo = from, to
	}
	return f, nil
}

// ParsePrice reads the amount from a price text. Thousands may be separated
// by spaces; a comma is accepted as the decimal separator.
func ParsePrice(text string) (decimal.Decimal, bool) {
	m := priceAmount.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	m = strings.Map(func(r rune) rune {
		switch {
		case r == ',':
			return '.'
		case r == ' ' || r == '\u00a0' || r == '\t' || r == '\n':
			return -1
		}
		return r
	}, m)

	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats (Russian or English month names):
//   - "15-30 июня" or "jun 15-30" - Same month, different days
//   - "1 июня - 15 июля" or "jun 1 - jul 15" - Different months
//   - "июнь" or "june" - Entire month
//
// The year is inferred: a month already past this year means next year, and
// for cross-month ranges an end month before the start month is in the year
// after the start.
//
// Returns (dateFrom, dateTo, error). Times are in UTC.
// Start time is at 00:00:00, end time is at 23:59:59.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if m := sameMonthRange.FindStringSubmatch(input); m != nil {
		d1, d2, name := m[1], m[2], m[3]
		if name == "" {
			name, d1, d2 = m[4], m[5], m[6]
		}
		month, ok := event.LookupMonth(name)
		if !ok {
			return nil, nil, fmt.Errorf("invalid month: %s", name)
		}
		day1, err := parseDay(d1)
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(d2)
		if err != nil {
			return nil, nil, err
		}

		year := getYearForMonth(month)
		from := time.Date(year, month, day1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, month, day2, 23, 59, 59, 0, time.UTC)
		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if m := crossMonthRange.FindStringSubmatch(input); m != nil {
		d1, n1, d2, n2 := m[1], m[2], m[3], m[4]
		if n1 == "" {
			n1, d1, n2, d2 = m[5], m[6], m[7], m[8]
		}
		month1, ok := event.LookupMonth(n1)
		if !ok {
			return nil, nil, fmt.Errorf("invalid month: %s", n1)
		}
		month2, ok := event.LookupMonth(n2)
		if !ok {
			return nil, nil, fmt.Errorf("invalid month: %s", n2)
		}
		day1, err := parseDay(d1)
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(d2)
		if err != nil {
			return nil, nil, err
		}

		year1 := getYearForMonth(month1)
		year2 := year1
		if month2 < month1 {
			year2++
		}

		from := time.Date(year1, month1, day1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year2, month2, day2, 23, 59, 59, 0, time.UTC)
		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if m := wholeMonth.FindStringSubmatch(input); m != nil {
		month, ok := event.LookupMonth(m[1])
		if !ok {
			return nil, nil, fmt.Errorf("invalid month: %s", m[1])
		}
		year := getYearForMonth(month)
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		// Last day of month
		to := time.Date(year, month+1, 0, 23, 59, 59, 0, time.UTC)
		return &from, &to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use '15-30 июня', '1 июня - 15 июля', or 'июнь'")
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

// getYearForMonth returns the appropriate year for a given month
// If the month has already passed this year, returns next year
func getYearForMonth(month time.Month) int {
	now := time.Now()
	year := now.Year()

	if month < now.Month() {
		year++
	}

	return year
}

package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quizwatch/quizwatch/internal/config"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     bool
		checkResult func(from, to *time.Time) bool
	}{
		{
			name:  "same month, russian",
			input: "15-30 июня",
			checkResult: func(from, to *time.Time) bool {
				return from.Month() == time.June && from.Day() == 15 &&
					to.Month() == time.June && to.Day() == 30 && to.Hour() == 23
			},
		},
		{
			name:  "same month, english",
			input: "Jun 1-15",
			checkResult: func(from, to *time.Time) bool {
				return from.Month() == time.June && from.Day() == 1 && to.Day() == 15
			},
		},
		{
			name:  "cross month, russian",
			input: "1 июня - 15 июля",
			checkResult: func(from, to *time.Time) bool {
				return from.Month() == time.June && to.Month() == time.July && to.Day() == 15
			},
		},
		{
			name:  "cross year",
			input: "25 дек - 5 янв",
			checkResult: func(from, to *time.Time) bool {
				return from.Month() == time.December && to.Month() == time.January &&
					to.Year() == from.Year()+1
			},
		},
		{
			name:  "cross month, english",
			input: "March 1 - April 15",
			checkResult: func(from, to *time.Time) bool {
				return from.Month() == time.March && to.Month() == time.April
			},
		},
		{
			name:  "whole month",
			input: "февраль",
			checkResult: func(from, to *time.Time) bool {
				return from.Day() == 1 && to.Month() == time.February && to.Day() >= 28
			},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "reversed days", input: "20-10 июня", wantErr: true},
		{name: "bad day", input: "1-40 июня", wantErr: true},
		{name: "unknown month", input: "1-5 понедельника", wantErr: true},
		{name: "garbage", input: "next week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !tt.checkResult(from, to) {
				t.Errorf("ParseDateRange(%q) = %v - %v", tt.input, from, to)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"500 ₽", "500", true},
		{"500 ₽ / чел", "500", true},
		{"1 200 руб.", "1200", true},
		{"от 450,50 ₽", "450.5", true},
		{"Бесплатно", "0", false},
		{"", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParsePrice(tt.text)
			if ok != tt.wantOK || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParsePrice(%q) = %s, %v; want %s, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	f, err := FromConfig(config.FilterConfig{
		OnlyAvailable: true,
		FutureDays:    90,
		MaxPrice:      "650",
		Places:        []string{" Янтарь ", ""},
	})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if !f.OnlyAvailable || f.FutureDays != 90 {
		t.Errorf("flags not copied: %+v", f)
	}
	if len(f.Places) != 1 || f.Places[0] != "Янтарь" {
		t.Errorf("Places = %q", f.Places)
	}
	if f.MaxPrice == nil || !f.MaxPrice.Equal(decimal.NewFromInt(650)) {
		t.Errorf("MaxPrice = %v", f.MaxPrice)
	}

	if _, err := FromConfig(config.FilterConfig{MaxPrice: "cheap"}); err == nil {
		t.Error("FromConfig() with invalid max_price should fail")
	}
}

func TestFromConfig_DateRange(t *testing.T) {
	f, err := FromConfig(config.FilterConfig{DateRange: "15-30 июня", WeekendsOnly: true})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if !f.WeekendsOnly {
		t.Error("WeekendsOnly not copied")
	}
	if f.DateFrom == nil || f.DateTo == nil {
		t.Fatal("date range not set")
	}
	if f.DateFrom.Month() != time.June || f.DateFrom.Day() != 15 || f.DateTo.Day() != 30 {
		t.Errorf("range = %v..%v", f.DateFrom, f.DateTo)
	}

	if _, err := FromConfig(config.FilterConfig{DateRange: "someday"}); err == nil {
		t.Error("FromConfig() with invalid date_range should fail")
	}
}

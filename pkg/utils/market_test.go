package utils

import (
	"testing"
	"time"
)

func TestIsTradingDay(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"monday", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"friday", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), true},
		{"saturday", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), false},
		{"new years day", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"independence day", time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), false},
		{"christmas", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), false},
		{"day after christmas", time.Date(2024, 12, 26, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTradingDay(tt.date); got != tt.want {
				t.Errorf("IsTradingDay(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestWithinRegularHours(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		ts   time.Time
		want bool
	}{
		{at(9, 29), false},
		{at(9, 30), true},
		{at(12, 0), true},
		{at(15, 55), true},
		{at(16, 0), false}, // close is exclusive
		{at(16, 5), false},
	}
	for _, tt := range tests {
		if got := WithinRegularHours(tt.ts); got != tt.want {
			t.Errorf("WithinRegularHours(%v) = %v, want %v", tt.ts, got, tt.want)
		}
	}
}

func TestMarketOpenClose(t *testing.T) {
	day := time.Date(2024, 3, 4, 13, 45, 12, 0, time.UTC)
	open := MarketOpen(day)
	if open.Hour() != 9 || open.Minute() != 30 {
		t.Errorf("MarketOpen = %v", open)
	}
	close := MarketClose(day)
	if close.Hour() != 16 || close.Minute() != 0 {
		t.Errorf("MarketClose = %v", close)
	}
	if !close.After(open) {
		t.Error("close must follow open")
	}
}

func TestSessionInNewYork(t *testing.T) {
	// A UTC midnight config date must still map to the same calendar day
	// in New York, not the prior evening.
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	open, close := SessionInNewYork(day)

	if open.Location() != NewYorkLocation || close.Location() != NewYorkLocation {
		t.Errorf("session not anchored in New York: %v, %v", open, close)
	}
	if open.Day() != 4 || close.Day() != 4 {
		t.Errorf("session shifted off the calendar day: %v, %v", open, close)
	}
	if open.Hour() != 9 || open.Minute() != 30 {
		t.Errorf("open = %v", open)
	}
	if close.Hour() != 16 || close.Minute() != 0 {
		t.Errorf("close = %v", close)
	}
	if !open.Before(close) {
		t.Error("open must precede close")
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{1000000, "$1,000,000.00"},
		{-987.65, "-$987.65"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSignedCurrency(t *testing.T) {
	if got := FormatSignedCurrency(250); got != "+$250.00" {
		t.Errorf("positive = %q", got)
	}
	if got := FormatSignedCurrency(-250); got != "-$250.00" {
		t.Errorf("negative = %q", got)
	}
}

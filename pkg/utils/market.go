// Package utils provides shared utility functions.
package utils

import "time"

// NewYorkLocation is the timezone for US equity and index markets.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// marketHolidays is a simplified full-day holiday list (month, day).
var marketHolidays = [][2]int{
	{1, 1},   // New Year's Day
	{7, 4},   // Independence Day
	{12, 25}, // Christmas
}

// IsTradingDay reports whether the date is a weekday and not a holiday.
func IsTradingDay(date time.Time) bool {
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return false
	}
	for _, h := range marketHolidays {
		if int(date.Month()) == h[0] && date.Day() == h[1] {
			return false
		}
	}
	return true
}

// MarketOpen returns 09:30 on the given date, in the date's location.
func MarketOpen(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 9, 30, 0, 0, date.Location())
}

// MarketClose returns 16:00 on the given date, in the date's location.
func MarketClose(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 16, 0, 0, 0, date.Location())
}

// SessionInNewYork returns the 09:30 open and 16:00 close for the date's
// calendar day, anchored in New York regardless of the date's own location.
func SessionInNewYork(date time.Time) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, NewYorkLocation)
	return MarketOpen(day), MarketClose(day)
}

// WithinRegularHours reports whether t falls in 09:30-16:00, end exclusive.
func WithinRegularHours(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package dateutil provides civil date handling for the event catalogue.
//
// Events carry calendar dates without a wall-clock component; mixing them
// with time.Time invites timezone bugs, so the catalogue uses an explicit
// civil Date type. The wire format is ISO (YYYY-MM-DD); the display format
// is Finnish (dd.mm.yyyy). Both round-trip losslessly.
package dateutil

import (
	"fmt"
	"time"
)

// ISO and display layouts for event dates and times.
const (
	ISODateLayout     = "2006-01-02"
	ISOTimeLayout     = "15:04:05"
	FinnishDateLayout = "02.01.2006"
)

// Date is a civil calendar date with no time or timezone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date. Out-of-range values are normalized the same
// way time.Date normalizes them (Feb 30 becomes Mar 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf extracts the civil date from a time.Time in its own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseISO parses an ISO YYYY-MM-DD date string.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse(ISODateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid ISO date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// ParseFinnish parses a dd.mm.yyyy date string.
func ParseFinnish(s string) (Date, error) {
	t, err := time.Parse(FinnishDateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String returns the ISO representation.
func (d Date) String() string {
	return d.Time().Format(ISODateLayout)
}

// Finnish returns the dd.mm.yyyy representation.
func (d Date) Finnish() string {
	return d.Time().Format(FinnishDateLayout)
}

// Time returns the date at UTC midnight.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is after other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// Equal reports whether two dates are the same day.
func (d Date) Equal(other Date) bool {
	return d == other
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// AddYears returns the date n years later, keeping month and day.
// Feb 29 rolls over per time.AddDate normalization.
func (d Date) AddYears(n int) Date {
	return DateOf(d.Time().AddDate(n, 0, 0))
}

// DaysBetween returns the number of days from a to b, negative when b is
// before a.
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()) / (24 * time.Hour))
}

// Weekday returns the day of week.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthDay returns the date for a specific day in a month, or ok=false when
// the month is too short (e.g. day 31 in February).
func MonthDay(year int, month time.Month, day int) (Date, bool) {
	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// NthWeekdayOfMonth returns the nth occurrence of a weekday within a month.
// nth is 1..4 for first..fourth, or -1 for the last occurrence. ok=false when
// the month has no nth occurrence (only possible for nth=4 in no month, but
// kept for safety; nth>4 always fails).
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, nth int) (Date, bool) {
	if nth == 0 || nth > 4 && nth != -1 || nth < -1 {
		return Date{}, false
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7

	if nth == -1 {
		// Walk the last matching weekday backwards from the final day.
		day := offset + 1
		for day+7 <= DaysInMonth(year, month) {
			day += 7
		}
		return Date{Year: year, Month: month, Day: day}, true
	}

	day := offset + 1 + (nth-1)*7
	if day > DaysInMonth(year, month) {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// NormalizeTime normalizes a time-of-day string to ISO HH:MM:SS.
// Accepts "9:00", "09:00" and "09:00:00" inputs.
func NormalizeTime(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	for _, layout := range []string{ISOTimeLayout, "15:04", "3:04", "15.04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISOTimeLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", s)
}

// Clock abstracts wall-clock access so background jobs are testable with a
// fixed time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a Clock pinned to a single instant, for tests.
type FixedClock struct {
	T time.Time
}

// Now implements Clock.
func (c FixedClock) Now() time.Time { return c.T }

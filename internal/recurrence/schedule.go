// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package recurrence materialises child events from recurring templates.
package recurrence

import (
	"time"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/models"
)

// maxPeriods caps the periods examined inside the window. The walk
// fast-forwards past everything at or before the lower bound first, so a
// template anchored years in the past still gets its full window. A daily
// schedule over a one-year horizon needs 366 periods; anything past this
// is a runaway.
const maxPeriods = 1000

// Occurrences walks the schedule forward from anchor and returns every
// occurrence o with after < o <= until, in ascending order. The schedule's
// own end date tightens the upper bound. A nil after (zero Date) means no
// lower bound: the anchor occurrence itself is included.
func Occurrences(s models.RepeatSchedule, anchor dateutil.Date, after, until dateutil.Date) []dateutil.Date {
	if !s.Repeats() {
		return nil
	}
	interval := s.Interval
	if interval < 1 {
		interval = 1
	}
	if s.EndDate != "" {
		if end, err := dateutil.ParseISO(s.EndDate); err == nil && end.Before(until) {
			until = end
		}
	}

	emit := func(d dateutil.Date) bool {
		return (after.IsZero() || d.After(after)) && !d.After(until)
	}

	var out []dateutil.Date
	switch s.Frequency {
	case models.FrequencyDaily:
		start := forwardDays(anchor, after, interval)
		for n := 0; n < maxPeriods; n++ {
			d := anchor.AddDays((start + n) * interval)
			if d.After(until) {
				break
			}
			if emit(d) {
				out = append(out, d)
			}
		}

	case models.FrequencyWeekly:
		weekday := anchor.Weekday()
		if s.Weekday != nil {
			weekday = *s.Weekday
		}
		// Pin the first occurrence to the configured weekday at or after
		// the anchor.
		first := anchor.AddDays((int(weekday) - int(anchor.Weekday()) + 7) % 7)
		start := forwardDays(first, after, interval*7)
		for n := 0; n < maxPeriods; n++ {
			d := first.AddDays((start + n) * interval * 7)
			if d.After(until) {
				break
			}
			if emit(d) {
				out = append(out, d)
			}
		}

	case models.FrequencyMonthly:
		start := forwardMonths(anchor, after, interval)
		for n := 0; n < maxPeriods; n++ {
			year, month := addMonths(anchor.Year, anchor.Month, (start+n)*interval)
			d, ok := monthlyOccurrence(s, anchor, year, month)
			if !ok {
				// Month has no such day (e.g. the 31st in February, or a
				// fifth weekday); skip it, the schedule continues.
				if monthStartsAfter(year, month, until) {
					break
				}
				continue
			}
			if d.After(until) {
				break
			}
			if emit(d) {
				out = append(out, d)
			}
		}

	case models.FrequencyYearly:
		start := 0
		if !after.IsZero() && after.Year > anchor.Year {
			start = (after.Year - anchor.Year) / interval
		}
		for n := 0; n < maxPeriods; n++ {
			d := anchor.AddYears((start + n) * interval)
			if d.After(until) {
				break
			}
			if emit(d) {
				out = append(out, d)
			}
		}
	}
	return out
}

// forwardDays returns the first period index k such that start+k*stepDays
// lands strictly after the cutoff. Zero when the cutoff is absent or
// behind start.
func forwardDays(start, after dateutil.Date, stepDays int) int {
	if after.IsZero() {
		return 0
	}
	diff := dateutil.DaysBetween(start, after)
	if diff < 0 {
		return 0
	}
	return diff/stepDays + 1
}

// forwardMonths returns the period index whose month contains the cutoff.
// That period's occurrence may still fall after the cutoff, so the walk
// starts there rather than one past it.
func forwardMonths(anchor dateutil.Date, after dateutil.Date, interval int) int {
	if after.IsZero() {
		return 0
	}
	diff := (after.Year-anchor.Year)*12 + int(after.Month) - int(anchor.Month)
	if diff < interval {
		return 0
	}
	return diff / interval
}

func monthlyOccurrence(s models.RepeatSchedule, anchor dateutil.Date, year int, month time.Month) (dateutil.Date, bool) {
	switch s.MonthlyOption {
	case models.MonthlyByNthWeekday:
		weekday := anchor.Weekday()
		if s.WeekdayOfMonth != nil {
			weekday = *s.WeekdayOfMonth
		}
		nth, ok := s.Nth.Ordinal()
		if !ok {
			return dateutil.Date{}, false
		}
		return dateutil.NthWeekdayOfMonth(year, month, weekday, nth)
	default:
		day := s.DayOfMonth
		if day == 0 {
			day = anchor.Day
		}
		return dateutil.MonthDay(year, month, day)
	}
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return t.Year(), t.Month()
}

func monthStartsAfter(year int, month time.Month, until dateutil.Date) bool {
	return dateutil.Date{Year: year, Month: month, Day: 1}.After(until)
}

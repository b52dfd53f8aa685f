// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/models"
)

func mustDate(t *testing.T, s string) dateutil.Date {
	t.Helper()
	d, err := dateutil.ParseISO(s)
	require.NoError(t, err)
	return d
}

func dates(ds []dateutil.Date) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.String())
	}
	return out
}

func weekdayPtr(w time.Weekday) *time.Weekday { return &w }

func TestOccurrencesDaily(t *testing.T) {
	s := models.RepeatSchedule{Frequency: models.FrequencyDaily, Interval: 1}
	got := Occurrences(s, mustDate(t, "2026-03-01"), dateutil.Date{}, mustDate(t, "2026-03-04"))
	assert.Equal(t, []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"}, dates(got))
}

func TestOccurrencesDailyInterval(t *testing.T) {
	s := models.RepeatSchedule{Frequency: models.FrequencyDaily, Interval: 3}
	got := Occurrences(s, mustDate(t, "2026-03-01"), dateutil.Date{}, mustDate(t, "2026-03-10"))
	assert.Equal(t, []string{"2026-03-01", "2026-03-04", "2026-03-07", "2026-03-10"}, dates(got))
}

func TestOccurrencesAfterBoundExclusive(t *testing.T) {
	s := models.RepeatSchedule{Frequency: models.FrequencyDaily, Interval: 1}
	got := Occurrences(s, mustDate(t, "2026-03-01"), mustDate(t, "2026-03-02"), mustDate(t, "2026-03-04"))
	// after is exclusive, until inclusive.
	assert.Equal(t, []string{"2026-03-03", "2026-03-04"}, dates(got))
}

func TestOccurrencesWeeklyPinnedWeekday(t *testing.T) {
	// Anchor is Sunday 2026-03-01; schedule pins Wednesday, so the first
	// occurrence slides forward to Wednesday the 4th.
	s := models.RepeatSchedule{
		Frequency: models.FrequencyWeekly,
		Interval:  1,
		Weekday:   weekdayPtr(time.Wednesday),
	}
	got := Occurrences(s, mustDate(t, "2026-03-01"), dateutil.Date{}, mustDate(t, "2026-03-31"))
	assert.Equal(t, []string{"2026-03-04", "2026-03-11", "2026-03-18", "2026-03-25"}, dates(got))
	for _, d := range got {
		assert.Equal(t, time.Wednesday, d.Weekday())
	}
}

func TestOccurrencesWeeklyDefaultsToAnchorWeekday(t *testing.T) {
	s := models.RepeatSchedule{Frequency: models.FrequencyWeekly, Interval: 2}
	got := Occurrences(s, mustDate(t, "2026-03-06"), dateutil.Date{}, mustDate(t, "2026-04-30"))
	assert.Equal(t, []string{"2026-03-06", "2026-03-20", "2026-04-03", "2026-04-17"}, dates(got))
}

func TestOccurrencesMonthlySkipsShortMonths(t *testing.T) {
	// Day 31 does not exist in February, April or June; those months are
	// skipped, not shifted.
	s := models.RepeatSchedule{
		Frequency:     models.FrequencyMonthly,
		Interval:      1,
		MonthlyOption: models.MonthlyByDayOfMonth,
		DayOfMonth:    31,
	}
	got := Occurrences(s, mustDate(t, "2026-01-31"), dateutil.Date{}, mustDate(t, "2026-07-31"))
	assert.Equal(t, []string{"2026-01-31", "2026-03-31", "2026-05-31", "2026-07-31"}, dates(got))
}

func TestOccurrencesMonthlyDefaultsToAnchorDay(t *testing.T) {
	s := models.RepeatSchedule{Frequency: models.FrequencyMonthly, Interval: 1}
	got := Occurrences(s, mustDate(t, "2026-01-15"), dateutil.Date{}, mustDate(t, "2026-03-31"))
	assert.Equal(t, []string{"2026-01-15", "2026-02-15", "2026-03-15"}, dates(got))
}

func TestOccurrencesMonthlyNthWeekday(t *testing.T) {
	s := models.RepeatSchedule{
		Frequency:      models.FrequencyMonthly,
		Interval:       1,
		MonthlyOption:  models.MonthlyByNthWeekday,
		Nth:            models.NthSecond,
		WeekdayOfMonth: weekdayPtr(time.Saturday),
	}
	got := Occurrences(s, mustDate(t, "2026-01-10"), dateutil.Date{}, mustDate(t, "2026-03-31"))
	assert.Equal(t, []string{"2026-01-10", "2026-02-14", "2026-03-14"}, dates(got))
}

func TestOccurrencesMonthlyLastWeekday(t *testing.T) {
	s := models.RepeatSchedule{
		Frequency:      models.FrequencyMonthly,
		Interval:       1,
		MonthlyOption:  models.MonthlyByNthWeekday,
		Nth:            models.NthLast,
		WeekdayOfMonth: weekdayPtr(time.Friday),
	}
	got := Occurrences(s, mustDate(t, "2026-01-30"), dateutil.Date{}, mustDate(t, "2026-03-31"))
	assert.Equal(t, []string{"2026-01-30", "2026-02-27", "2026-03-27"}, dates(got))
}

func TestOccurrencesYearly(t *testing.T) {
	s := models.RepeatSchedule{Frequency: models.FrequencyYearly, Interval: 1}
	got := Occurrences(s, mustDate(t, "2026-05-01"), dateutil.Date{}, mustDate(t, "2028-12-31"))
	assert.Equal(t, []string{"2026-05-01", "2027-05-01", "2028-05-01"}, dates(got))
}

func TestOccurrencesEndDateTightensUntil(t *testing.T) {
	s := models.RepeatSchedule{
		Frequency: models.FrequencyDaily,
		Interval:  1,
		EndDate:   "2026-03-02",
	}
	got := Occurrences(s, mustDate(t, "2026-03-01"), dateutil.Date{}, mustDate(t, "2026-12-31"))
	assert.Equal(t, []string{"2026-03-01", "2026-03-02"}, dates(got))
}

func TestOccurrencesNonRepeating(t *testing.T) {
	assert.Nil(t, Occurrences(models.RepeatSchedule{}, mustDate(t, "2026-03-01"), dateutil.Date{}, mustDate(t, "2026-12-31")))
	assert.Nil(t, Occurrences(models.RepeatSchedule{Frequency: models.FrequencyNone}, mustDate(t, "2026-03-01"), dateutil.Date{}, mustDate(t, "2026-12-31")))
}

func TestOccurrencesBoundedByMaxPeriods(t *testing.T) {
	// A daily schedule over ten years hits the period cap instead of
	// walking forever.
	s := models.RepeatSchedule{Frequency: models.FrequencyDaily, Interval: 1}
	got := Occurrences(s, mustDate(t, "2026-01-01"), dateutil.Date{}, mustDate(t, "2036-01-01"))
	assert.Len(t, got, maxPeriods)
}

func TestOccurrencesWindowFarFromAnchor(t *testing.T) {
	// Years of history before the window must not consume the period cap:
	// the walk fast-forwards to the lower bound first.
	s := models.RepeatSchedule{Frequency: models.FrequencyDaily, Interval: 1}
	got := Occurrences(s, mustDate(t, "2023-01-01"), mustDate(t, "2026-08-28"), mustDate(t, "2026-09-01"))
	assert.Equal(t, []string{"2026-08-29", "2026-08-30", "2026-08-31", "2026-09-01"}, dates(got))
}

func TestOccurrencesWindowFarFromAnchorWeekly(t *testing.T) {
	// Mondays, anchored years back: 2026-08-24 and -31 fall in the window.
	s := models.RepeatSchedule{
		Frequency: models.FrequencyWeekly,
		Interval:  1,
		Weekday:   weekdayPtr(time.Monday),
	}
	got := Occurrences(s, mustDate(t, "2020-01-06"), mustDate(t, "2026-08-20"), mustDate(t, "2026-08-31"))
	assert.Equal(t, []string{"2026-08-24", "2026-08-31"}, dates(got))
}

func TestOccurrencesWindowFarFromAnchorMonthly(t *testing.T) {
	s := models.RepeatSchedule{
		Frequency:     models.FrequencyMonthly,
		Interval:      1,
		MonthlyOption: models.MonthlyByDayOfMonth,
		DayOfMonth:    15,
	}
	got := Occurrences(s, mustDate(t, "1995-01-15"), mustDate(t, "2026-08-01"), mustDate(t, "2026-10-31"))
	assert.Equal(t, []string{"2026-08-15", "2026-09-15", "2026-10-15"}, dates(got))
}

func TestOccurrencesWindowFarFromAnchorInterval(t *testing.T) {
	// The phase of a multi-day interval survives the fast-forward: every
	// third day from 2023-01-01 passes through 2026-08-28, so the next
	// occurrences after it are Aug 31 and Sep 3.
	s := models.RepeatSchedule{Frequency: models.FrequencyDaily, Interval: 3}
	got := Occurrences(s, mustDate(t, "2023-01-01"), mustDate(t, "2026-08-28"), mustDate(t, "2026-09-05"))
	assert.Equal(t, []string{"2026-08-31", "2026-09-03"}, dates(got))
}

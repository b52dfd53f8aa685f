// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISO(t *testing.T) {
	d, err := ParseISO("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 15}, d)
	assert.Equal(t, "2026-03-15", d.String())

	_, err = ParseISO("15.03.2026")
	assert.Error(t, err)
	_, err = ParseISO("2026-13-01")
	assert.Error(t, err)
}

func TestParseFinnish(t *testing.T) {
	d, err := ParseFinnish("15.03.2026")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", d.String())
	assert.Equal(t, "15.03.2026", d.Finnish())
}

func TestAddDaysAndYears(t *testing.T) {
	d := Date{Year: 2026, Month: time.February, Day: 28}
	assert.Equal(t, "2026-03-01", d.AddDays(1).String())
	assert.Equal(t, "2027-02-28", d.AddYears(1).String())

	// Leap day rolls over to Mar 1 on non-leap years.
	leap := Date{Year: 2028, Month: time.February, Day: 29}
	assert.Equal(t, "2029-03-01", leap.AddYears(1).String())
}

func TestMonthDay(t *testing.T) {
	_, ok := MonthDay(2026, time.February, 31)
	assert.False(t, ok, "February has no 31st")

	_, ok = MonthDay(2026, time.February, 29)
	assert.False(t, ok, "2026 is not a leap year")

	d, ok := MonthDay(2028, time.February, 29)
	require.True(t, ok)
	assert.Equal(t, "2028-02-29", d.String())

	d, ok = MonthDay(2026, time.January, 31)
	require.True(t, ok)
	assert.Equal(t, "2026-01-31", d.String())
}

func TestNthWeekdayOfMonth(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		month   time.Month
		weekday time.Weekday
		nth     int
		want    string
		ok      bool
	}{
		{"first monday aug 2026", 2026, time.August, time.Monday, 1, "2026-08-03", true},
		{"second tuesday aug 2026", 2026, time.August, time.Tuesday, 2, "2026-08-11", true},
		{"fourth sunday aug 2026", 2026, time.August, time.Sunday, 4, "2026-08-23", true},
		{"last friday aug 2026", 2026, time.August, time.Friday, -1, "2026-08-28", true},
		{"last saturday feb 2026", 2026, time.February, time.Saturday, -1, "2026-02-28", true},
		{"fifth is invalid", 2026, time.August, time.Monday, 5, "", false},
		{"zero is invalid", 2026, time.August, time.Monday, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := NthWeekdayOfMonth(tt.year, tt.month, tt.weekday, tt.nth)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, d.String())
				assert.Equal(t, tt.weekday, d.Weekday())
			}
		})
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", true},
		{"9:00", "09:00:00", true},
		{"09:00", "09:00:00", true},
		{"09:00:00", "09:00:00", true},
		{"18.30", "18:30:00", true},
		{"25:00", "", false},
		{"noon", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeTime(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestFixedClock(t *testing.T) {
	instant := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	var c Clock = FixedClock{T: instant}
	assert.Equal(t, instant, c.Now())
	assert.Equal(t, "2026-08-29", DateOf(c.Now()).String())
}

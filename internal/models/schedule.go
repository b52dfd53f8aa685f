// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package models

import "time"

// Frequency is the repeat unit of a schedule.
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// MonthlyOption selects how a monthly schedule anchors within the month.
type MonthlyOption string

const (
	MonthlyByDayOfMonth MonthlyOption = "day_of_month"
	MonthlyByNthWeekday MonthlyOption = "nth_weekday"
)

// NthWeekday names which occurrence of a weekday a monthly schedule targets.
type NthWeekday string

const (
	NthFirst  NthWeekday = "first"
	NthSecond NthWeekday = "second"
	NthThird  NthWeekday = "third"
	NthFourth NthWeekday = "fourth"
	NthLast   NthWeekday = "last"
)

// Ordinal converts the nth name to its numeric position; last is -1.
// ok is false for unknown values.
func (n NthWeekday) Ordinal() (int, bool) {
	switch n {
	case NthFirst:
		return 1, true
	case NthSecond:
		return 2, true
	case NthThird:
		return 3, true
	case NthFourth:
		return 4, true
	case NthLast:
		return -1, true
	}
	return 0, false
}

// RepeatSchedule is the value object embedded in a recurring template.
//
// Weekday applies to weekly schedules; DayOfMonth to monthly day_of_month;
// Nth and WeekdayOfMonth to monthly nth_weekday. EndDate (ISO date) bounds
// the schedule; empty means open-ended up to the expansion horizon.
type RepeatSchedule struct {
	Frequency      Frequency     `json:"frequency"`
	Interval       int           `json:"interval"`
	Weekday        *time.Weekday `json:"weekday,omitempty"`
	MonthlyOption  MonthlyOption `json:"monthly_option,omitempty"`
	DayOfMonth     int           `json:"day_of_month,omitempty"`
	Nth            NthWeekday    `json:"nth,omitempty"`
	WeekdayOfMonth *time.Weekday `json:"weekday_of_month,omitempty"`
	EndDate        string        `json:"end_date,omitempty"`
}

// Repeats reports whether the schedule produces more than the anchor date.
func (s *RepeatSchedule) Repeats() bool {
	return s != nil && s.Frequency != "" && s.Frequency != FrequencyNone
}

// RecurringTemplate is the parent definition that materialises child events.
// It carries all the event fields (the expander copies them onto children)
// plus the schedule and expansion bookkeeping.
type RecurringTemplate struct {
	Event

	RepeatSchedule RepeatSchedule `json:"repeat_schedule"`

	// CreatedUntil is the last expansion horizon (ISO date). Occurrences at
	// or before it are never re-created.
	CreatedUntil string `json:"created_until,omitempty"`

	// FrozenChildren lists child event ids the expander must never create,
	// refresh or delete.
	FrozenChildren []string `json:"frozen_children,omitempty"`

	// AppliedCity and AppliedAddress record the location values the
	// expander last pushed onto children. A child whose location no longer
	// matches them was moved by hand and keeps its own location.
	AppliedCity    *string `json:"applied_city,omitempty"`
	AppliedAddress *string `json:"applied_address,omitempty"`
}

// Frozen reports whether a child id is excluded from expansion.
func (t *RecurringTemplate) Frozen(childID string) bool {
	for _, id := range t.FrozenChildren {
		if id == childID {
			return true
		}
	}
	return false
}

// CloneTemplate returns a deep copy of the template.
func (t *RecurringTemplate) CloneTemplate() *RecurringTemplate {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Event = *t.Event.Clone()
	if t.RepeatSchedule.Weekday != nil {
		w := *t.RepeatSchedule.Weekday
		cp.RepeatSchedule.Weekday = &w
	}
	if t.RepeatSchedule.WeekdayOfMonth != nil {
		w := *t.RepeatSchedule.WeekdayOfMonth
		cp.RepeatSchedule.WeekdayOfMonth = &w
	}
	if t.FrozenChildren != nil {
		cp.FrozenChildren = append([]string(nil), t.FrozenChildren...)
	}
	if t.AppliedCity != nil {
		v := *t.AppliedCity
		cp.AppliedCity = &v
	}
	if t.AppliedAddress != nil {
		v := *t.AppliedAddress
		cp.AppliedAddress = &v
	}
	return &cp
}

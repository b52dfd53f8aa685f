// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title     string `validate:"required,min=3"`
	Date      string `validate:"required,iso_date"`
	StartTime string `validate:"omitempty,clock_time"`
	EventType string `validate:"required,event_type"`
	Email     string `validate:"required,email"`
}

func valid() payload {
	return payload{
		Title:     "Ilmastomarssi",
		Date:      "2026-09-01",
		StartTime: "12:00",
		EventType: "MARCH",
		Email:     "a@example.org",
	}
}

func TestStructValid(t *testing.T) {
	require.NoError(t, Struct(valid()))
}

func TestStructCustomTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*payload)
		field  string
	}{
		{"bad date format", func(p *payload) { p.Date = "01.09.2026" }, "Date"},
		{"impossible date", func(p *payload) { p.Date = "2026-02-30" }, "Date"},
		{"bad time", func(p *payload) { p.StartTime = "25:99" }, "StartTime"},
		{"unknown event type", func(p *payload) { p.EventType = "FLASHMOB" }, "EventType"},
		{"short title", func(p *payload) { p.Title = "ab" }, "Title"},
		{"bad email", func(p *payload) { p.Email = "not-an-email" }, "Email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := Struct(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestStructEmptyOptionalTime(t *testing.T) {
	p := valid()
	p.StartTime = ""
	assert.NoError(t, Struct(p))
}

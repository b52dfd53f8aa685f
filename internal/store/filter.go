// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"strings"
	"time"

	"github.com/mkosonen/kulkue/internal/models"
)

// Filter selects events. Zero-value fields are ignored; pointer fields
// distinguish "unset" from "false". Filters serialize to JSON so the audit
// recorder can store them alongside the mutation for debugging.
type Filter struct {
	ID            string   `json:"_id,omitempty"`
	IDs           []string `json:"_id_in,omitempty"`
	Slug          string   `json:"slug,omitempty"`
	RunningNumber *int64   `json:"running_number,omitempty"`

	Parent    string `json:"parent,omitempty"`
	HasParent *bool  `json:"has_parent,omitempty"`

	Date    string `json:"date,omitempty"`
	DateGTE string `json:"date_gte,omitempty"`
	DateLT  string `json:"date_lt,omitempty"`

	Cities []string `json:"cities,omitempty"`

	// Search matches a case-insensitive substring of title, description,
	// address or tags.
	Search string `json:"search,omitempty"`

	Approved  *bool `json:"approved,omitempty"`
	Hidden    *bool `json:"hidden,omitempty"`
	Rejected  *bool `json:"rejected,omitempty"`
	Cancelled *bool `json:"cancelled,omitempty"`
	InPast    *bool `json:"in_past,omitempty"`

	// Merged selects on whether merged_into is set.
	Merged *bool `json:"merged,omitempty"`

	// AdminContactedBefore matches events whose
	// admin_notification_last_sent_at is absent or strictly before the
	// given instant. Used by the reminder sweep.
	AdminContactedBefore *time.Time `json:"admin_contacted_before,omitempty"`
}

// ByID returns a filter matching a single document id.
func ByID(id string) Filter { return Filter{ID: id} }

// ByIDs returns a filter matching any of the given ids.
func ByIDs(ids []string) Filter { return Filter{IDs: ids} }

// Bool is a convenience for taking the address of a literal.
func Bool(v bool) *bool { return &v }

// Matches reports whether the event satisfies every set criterion.
func (f Filter) Matches(e *models.Event) bool {
	if f.ID != "" && e.ID != f.ID {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if e.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Slug != "" && e.Slug != f.Slug {
		return false
	}
	if f.RunningNumber != nil && e.RunningNumber != *f.RunningNumber {
		return false
	}
	if f.Parent != "" && e.Parent != f.Parent {
		return false
	}
	if f.HasParent != nil && (e.Parent != "") != *f.HasParent {
		return false
	}
	// ISO dates compare correctly as strings.
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	if f.DateGTE != "" && e.Date < f.DateGTE {
		return false
	}
	if f.DateLT != "" && e.Date >= f.DateLT {
		return false
	}
	if len(f.Cities) > 0 {
		found := false
		for _, c := range f.Cities {
			if strings.EqualFold(strings.TrimSpace(c), e.City) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" && !searchMatch(e, f.Search) {
		return false
	}
	if f.Approved != nil && e.Approved != *f.Approved {
		return false
	}
	if f.Hidden != nil && e.Hidden != *f.Hidden {
		return false
	}
	if f.Rejected != nil && e.Rejected != *f.Rejected {
		return false
	}
	if f.Cancelled != nil && e.Cancelled != *f.Cancelled {
		return false
	}
	if f.InPast != nil && e.InPast != *f.InPast {
		return false
	}
	if f.Merged != nil && (e.MergedInto != "") != *f.Merged {
		return false
	}
	if f.AdminContactedBefore != nil {
		if e.AdminNotificationLastSentAt != nil &&
			!e.AdminNotificationLastSentAt.Before(*f.AdminContactedBefore) {
			return false
		}
	}
	return true
}

func searchMatch(e *models.Event, needle string) bool {
	needle = strings.ToLower(needle)
	if strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.Description), needle) ||
		strings.Contains(strings.ToLower(e.Address), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

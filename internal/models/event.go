// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package models defines the documents held in the event store.
package models

import (
	"time"
)

// EventType categorizes the form of a demonstration.
type EventType string

const (
	EventTypeStayStill EventType = "STAY_STILL"
	EventTypeMarch     EventType = "MARCH"
	EventTypePicket    EventType = "PICKET"
	EventTypeOther     EventType = "OTHER"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	switch t {
	case EventTypeStayStill, EventTypeMarch, EventTypePicket, EventTypeOther:
		return true
	}
	return false
}

// Organizer is embedded in an event. OrganizationID is a weak reference;
// the organization document is looked up on read and may be absent.
type Organizer struct {
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Website        string `json:"website,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// RoutePoint is one ordered waypoint of a march route.
type RoutePoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Label     string  `json:"label,omitempty"`
}

// MediaRef points at an uploaded cover image. Upload and storage are
// external; the event only carries the reference.
type MediaRef struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Event is a concrete demonstration occurrence with a specific date.
//
// Visible disposition: at most one of approved, rejected, cancelled,
// merged_into, hidden governs visibility; approved together with rejected
// is an invariant violation the store refuses to write.
type Event struct {
	ID            string `json:"_id"`
	RunningNumber int64  `json:"running_number"`
	Slug          string `json:"slug"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Date is ISO YYYY-MM-DD; StartTime and EndTime are ISO HH:MM:SS,
	// normalised on write.
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	City    string `json:"city"`
	Address string `json:"address,omitempty"`

	Route      []RoutePoint `json:"route,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
	EventType  EventType    `json:"event_type"`
	Organizers []Organizer  `json:"organizers,omitempty"`

	Approved  bool `json:"approved"`
	Hidden    bool `json:"hidden"`
	InPast    bool `json:"in_past"`
	Cancelled bool `json:"cancelled"`
	Rejected  bool `json:"rejected"`

	// Parent links a child event to its recurring template.
	Parent string `json:"parent,omitempty"`

	// Aliases holds ids of events merged into this one; MergedInto points the
	// other way. The two are kept symmetric by the duplicate merger.
	Aliases    []string `json:"aliases,omitempty"`
	MergedInto string   `json:"merged_into,omitempty"`

	CoverImage *MediaRef `json:"cover_image,omitempty"`

	// AdminNotificationLastSentAt closes the at-most-one-reminder-per-24h
	// loop; the dispatcher advances it only after a successful enqueue.
	AdminNotificationLastSentAt *time.Time `json:"admin_notification_last_sent_at,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// Visible reports whether the event may be served from the public API.
func (e *Event) Visible() bool {
	return e.Approved && !e.Hidden && !e.Rejected && e.MergedInto == ""
}

// Terminal reports whether the event has reached a terminal lifecycle state.
func (e *Event) Terminal() bool {
	return (e.Hidden && e.Rejected) || e.MergedInto != ""
}

// HasAlias reports whether id is already recorded as a merged alias.
func (e *Event) HasAlias(id string) bool {
	for _, a := range e.Aliases {
		if a == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. The audit recorder stores clones as before and
// after images so later mutations cannot corrupt history rows.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Route != nil {
		cp.Route = append([]RoutePoint(nil), e.Route...)
	}
	if e.Tags != nil {
		cp.Tags = append([]string(nil), e.Tags...)
	}
	if e.Organizers != nil {
		cp.Organizers = append([]Organizer(nil), e.Organizers...)
	}
	if e.Aliases != nil {
		cp.Aliases = append([]string(nil), e.Aliases...)
	}
	if e.CoverImage != nil {
		img := *e.CoverImage
		cp.CoverImage = &img
	}
	if e.AdminNotificationLastSentAt != nil {
		t := *e.AdminNotificationLastSentAt
		cp.AdminNotificationLastSentAt = &t
	}
	return &cp
}

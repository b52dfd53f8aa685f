// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"time"

	"github.com/mkosonen/kulkue/internal/models"
)

// Update is a typed patch applied to an event. Nil fields are left alone.
// Updates serialize to JSON so the audit recorder can store them alongside
// the mutation for debugging.
type Update struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`

	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`

	City    *string `json:"city,omitempty"`
	Address *string `json:"address,omitempty"`

	EventType  *models.EventType    `json:"event_type,omitempty"`
	Tags       *[]string            `json:"tags,omitempty"`
	Organizers *[]models.Organizer  `json:"organizers,omitempty"`
	Route      *[]models.RoutePoint `json:"route,omitempty"`
	CoverImage *models.MediaRef     `json:"cover_image,omitempty"`

	Approved  *bool `json:"approved,omitempty"`
	Hidden    *bool `json:"hidden,omitempty"`
	InPast    *bool `json:"in_past,omitempty"`
	Cancelled *bool `json:"cancelled,omitempty"`
	Rejected  *bool `json:"rejected,omitempty"`

	MergedInto *string  `json:"merged_into,omitempty"`
	AddAliases []string `json:"add_aliases,omitempty"`

	AdminNotificationLastSentAt *time.Time `json:"admin_notification_last_sent_at,omitempty"`
}

// Apply mutates e in place. The caller (the store engine) bumps
// last_modified; Apply only transfers field values.
func (u Update) Apply(e *models.Event) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.StartTime != nil {
		e.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		e.EndTime = *u.EndTime
	}
	if u.City != nil {
		e.City = *u.City
	}
	if u.Address != nil {
		e.Address = *u.Address
	}
	if u.EventType != nil {
		e.EventType = *u.EventType
	}
	if u.Tags != nil {
		e.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.Organizers != nil {
		e.Organizers = append([]models.Organizer(nil), (*u.Organizers)...)
	}
	if u.Route != nil {
		e.Route = append([]models.RoutePoint(nil), (*u.Route)...)
	}
	if u.CoverImage != nil {
		img := *u.CoverImage
		e.CoverImage = &img
	}
	if u.Approved != nil {
		e.Approved = *u.Approved
	}
	if u.Hidden != nil {
		e.Hidden = *u.Hidden
	}
	if u.InPast != nil {
		e.InPast = *u.InPast
	}
	if u.Cancelled != nil {
		e.Cancelled = *u.Cancelled
	}
	if u.Rejected != nil {
		e.Rejected = *u.Rejected
	}
	if u.MergedInto != nil {
		e.MergedInto = *u.MergedInto
	}
	for _, alias := range u.AddAliases {
		if !e.HasAlias(alias) {
			e.Aliases = append(e.Aliases, alias)
		}
	}
	if u.AdminNotificationLastSentAt != nil {
		t := *u.AdminNotificationLastSentAt
		e.AdminNotificationLastSentAt = &t
	}
}

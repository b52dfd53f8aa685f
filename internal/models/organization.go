// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package models

import "time"

// Organization is a registered organizing body. Events reference it weakly
// through Organizer.OrganizationID; the hourly organizer-refresh job
// propagates edits here onto embedded organizers.
type Organization struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership links a user to an organization with a role.
type Membership struct {
	ID             string    `json:"_id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// Submitter records who submitted a demonstration. The duplicate merger
// prefers the submitter-referenced event as merge primary so this link
// survives merges.
type Submitter struct {
	ID              string    `json:"_id"`
	DemonstrationID string    `json:"demonstration_id"`
	Name            string    `json:"submitter_name,omitempty"`
	Email           string    `json:"submitter_email"`
	AcceptTerms     bool      `json:"accept_terms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Reminder is a participant's request to be reminded about an event.
type Reminder struct {
	ID              string     `json:"_id"`
	DemonstrationID string     `json:"demonstration_id"`
	Email           string     `json:"email"`
	Confirmed       bool       `json:"confirmed"`
	Cancelled       *bool      `json:"cancelled,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
}

// UserSettings holds per-user notification preferences for moderators.
type UserSettings struct {
	UserID            string `json:"user_id"`
	NotifyNewDemos    bool   `json:"notify_new_demos"`
	NotifyCaseUpdates bool   `json:"notify_case_updates"`
	Locale            string `json:"locale,omitempty"`
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// AuditActor identifies who performed a mutation: a moderator (user id and
// username) or a background job (source "job:<key>" with a run id).
type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Source   string `json:"source"`
	RunID    string `json:"run_id,omitempty"`
}

// AuditEntry is one append-only row in the audit log. Entries are never
// mutated or deleted.
type AuditEntry struct {
	ID        string     `json:"_id"`
	EventID   string     `json:"event_id"`
	Action    string     `json:"action"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Actor     AuditActor `json:"actor"`
	IP        string     `json:"ip,omitempty"`
	RequestID string     `json:"request_id,omitempty"`

	// ChangedFields lists the top-level document keys whose values differ
	// between the before and after images.
	ChangedFields []string `json:"changed_fields,omitempty"`

	// Details carries the serialized filter and update for debugging.
	Details map[string]json.RawMessage `json:"details,omitempty"`

	// HistoryID cross-references the EventHistory row written for the same
	// mutation.
	HistoryID string `json:"history_id,omitempty"`
}

// EventHistory is the full before/after image of one mutation. Append-only.
type EventHistory struct {
	ID       string          `json:"_id"`
	EventID  string          `json:"event_id"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
	Diff     json.RawMessage `json:"diff,omitempty"` // reserved
	EditedBy string          `json:"edited_by"`
	EditedAt time.Time       `json:"edited_at"`
	CaseID   string          `json:"case_id,omitempty"`
	Actor    AuditActor      `json:"actor"`
}

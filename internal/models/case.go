// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package models

import "time"

// CaseType names the policy event that opened a case.
type CaseType string

const (
	CaseTypeNewDemo       CaseType = "new_demo"
	CaseTypeEditDemo      CaseType = "edit_demo"
	CaseTypeOrgEdit       CaseType = "org_edit_suggestion"
	CaseTypeReport        CaseType = "report"
	CaseTypeCancelRequest CaseType = "cancel_request"
)

// Close reasons written by the auto-closer. Operator-facing strings are in
// Finnish like the rest of the moderation surface.
const (
	CloseReasonAccepted     = "Demo hyväksytty"
	CloseReasonRejected     = "Demo hylätty"
	CloseReasonCancelled    = "Demo peruttu"
	CloseReasonChangesSaved = "changes saved"
)

// CaseMeta holds the mutable resolution state of a case.
type CaseMeta struct {
	Closed       bool   `json:"closed"`
	ClosedReason string `json:"closed_reason,omitempty"`
}

// CaseHistoryEntry is one append-only note on a case.
type CaseHistoryEntry struct {
	Message   string    `json:"message"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Case tracks a moderation task linked to an event or an organization.
// The auto-closer resolves it once the linked entity reaches a terminal
// state.
type Case struct {
	ID             string             `json:"_id"`
	CaseType       CaseType           `json:"case_type"`
	DemoID         string             `json:"demo_id,omitempty"`
	OrganizationID string             `json:"organization_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Meta           CaseMeta           `json:"meta"`
	History        []CaseHistoryEntry `json:"history,omitempty"`
}

// CloneCase returns a deep copy of the case.
func (c *Case) CloneCase() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	if c.History != nil {
		cp.History = append([]CaseHistoryEntry(nil), c.History...)
	}
	return &cp
}

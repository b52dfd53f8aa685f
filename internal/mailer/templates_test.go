// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/models"
)

func TestRenderAdminPendingReminder(t *testing.T) {
	body, err := Render(models.NotificationMessage{
		Template: models.NotificationTypeAdminPendingReminder,
		Context: map[string]any{
			"title":           "Ilmastomarssi",
			"date":            "2026-09-01",
			"city":            "Helsinki",
			"submitter_name":  "Matti",
			"submitter_email": "matti@example.org",
			"approve_url":     "https://example.org/moderation/demo/abc/approve",
			"preview_url":     "https://example.org/moderation/demo/abc/preview",
			"reject_url":      "https://example.org/moderation/demo/abc/reject",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Ilmastomarssi")
	assert.Contains(t, body, "Hyväksy: https://example.org/moderation/demo/abc/approve")
	assert.Contains(t, body, "matti@example.org")
}

func TestRenderSubmissionLifecycle(t *testing.T) {
	ctxt := map[string]any{
		"title":      "Ilmastomarssi",
		"date":       "2026-09-01",
		"reason":     "päällekkäinen ilmoitus",
		"public_url": "https://example.org/demonstration/ilmastomarssi",
	}
	for _, tmpl := range []string{
		models.NotificationTypeSubmissionReceived,
		models.NotificationTypeSubmissionAccepted,
		models.NotificationTypeSubmissionRejected,
		models.NotificationTypeRecurringCreated,
	} {
		body, err := Render(models.NotificationMessage{Template: tmpl, Context: ctxt})
		require.NoError(t, err, tmpl)
		assert.Contains(t, body, "Ilmastomarssi", tmpl)
	}
}

func TestRenderRejectedWithoutReason(t *testing.T) {
	body, err := Render(models.NotificationMessage{
		Template: models.NotificationTypeSubmissionRejected,
		Context:  map[string]any{"title": "Demo", "date": "2026-09-01"},
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "Syy:")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render(models.NotificationMessage{Template: "no_such_template"})
	assert.Error(t, err)
}

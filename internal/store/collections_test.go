// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/models"
)

func TestSubmitterRefs(t *testing.T) {
	s := openTestStore(t, newTestClock())
	ctx := context.Background()

	_, err := s.Submitters().Insert(ctx, &models.Submitter{
		DemonstrationID: "demo-1",
		Email:           "matti@example.org",
		AcceptTerms:     true,
	})
	require.NoError(t, err)

	has, err := s.Submitters().HasDemoRef(ctx, "demo-1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.Submitters().HasDemoRef(ctx, "demo-2")
	require.NoError(t, err)
	assert.False(t, has)

	n, err := s.Submitters().RewriteDemoRefs(ctx, "demo-1", "demo-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	subs, err := s.Submitters().ByDemo(ctx, "demo-2")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "matti@example.org", subs[0].Email)
}

func TestCaseLifecycle(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	c, err := s.Cases().Insert(ctx, &models.Case{
		CaseType: models.CaseTypeNewDemo,
		DemoID:   "demo-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.Meta.Closed)

	open, err := s.Cases().Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, s.Cases().Close(ctx, c.ID, models.CloseReasonAccepted, "auto-close"))

	got, err := s.Cases().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Meta.Closed)
	assert.Equal(t, models.CloseReasonAccepted, got.Meta.ClosedReason)
	require.Len(t, got.History, 1)
	assert.Equal(t, "auto-close", got.History[0].Author)

	open, err = s.Cases().Open(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	// Closing again keeps the single history note.
	require.NoError(t, s.Cases().Close(ctx, c.ID, models.CloseReasonRejected, "auto-close"))
	got, err = s.Cases().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CloseReasonAccepted, got.Meta.ClosedReason)
	assert.Len(t, got.History, 1)
}

func TestCasesOpenOldestFirst(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	older, err := s.Cases().Insert(ctx, &models.Case{CaseType: models.CaseTypeNewDemo, DemoID: "a"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	newer, err := s.Cases().Insert(ctx, &models.Case{CaseType: models.CaseTypeReport, DemoID: "b"})
	require.NoError(t, err)

	open, err := s.Cases().Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, older.ID, open[0].ID)
	assert.Equal(t, newer.ID, open[1].ID)
}

func TestCaseGetNotFound(t *testing.T) {
	s := openTestStore(t, newTestClock())
	_, err := s.Cases().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemindersDue(t *testing.T) {
	s := openTestStore(t, newTestClock())
	ctx := context.Background()

	due, err := s.Reminders().Insert(ctx, &models.Reminder{
		DemonstrationID: "demo-1",
		Email:           "a@example.org",
		Confirmed:       true,
	})
	require.NoError(t, err)
	_, err = s.Reminders().Insert(ctx, &models.Reminder{
		DemonstrationID: "demo-1",
		Email:           "unconfirmed@example.org",
	})
	require.NoError(t, err)
	cancelled := true
	_, err = s.Reminders().Insert(ctx, &models.Reminder{
		DemonstrationID: "demo-1",
		Email:           "cancelled@example.org",
		Confirmed:       true,
		Cancelled:       &cancelled,
	})
	require.NoError(t, err)
	_, err = s.Reminders().Insert(ctx, &models.Reminder{
		DemonstrationID: "demo-other",
		Email:           "elsewhere@example.org",
		Confirmed:       true,
	})
	require.NoError(t, err)

	got, err := s.Reminders().Due(ctx, []string{"demo-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a@example.org", got[0].Email)

	// Sent reminders drop out of the due set.
	require.NoError(t, s.Reminders().MarkSent(ctx, due.ID))
	got, err = s.Reminders().Due(ctx, []string{"demo-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrganizationMutateBumpsUpdatedAt(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	org, err := s.Organizations().Insert(ctx, &models.Organization{Name: "Maan ystävät"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	err = s.Organizations().Mutate(ctx, org.ID, func(o *models.Organization) error {
		o.Email = "info@example.org"
		return nil
	})
	require.NoError(t, err)

	got, err := s.Organizations().Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "info@example.org", got.Email)
	assert.Equal(t, org.UpdatedAt.Add(time.Hour), got.UpdatedAt)
}

func TestMembershipsByOrganization(t *testing.T) {
	s := openTestStore(t, newTestClock())
	ctx := context.Background()

	_, err := s.Memberships().Insert(ctx, &models.Membership{UserID: "u1", OrganizationID: "org-1", Role: "admin"})
	require.NoError(t, err)
	_, err = s.Memberships().Insert(ctx, &models.Membership{UserID: "u2", OrganizationID: "org-2", Role: "member"})
	require.NoError(t, err)

	got, err := s.Memberships().ByOrganization(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UserID)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t, newTestClock())
	ctx := context.Background()

	_, err := s.Settings().Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Settings().Put(ctx, &models.UserSettings{
		UserID:         "u1",
		NotifyNewDemos: true,
		Locale:         "fi",
	}))

	got, err := s.Settings().Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.NotifyNewDemos)
	assert.Equal(t, "fi", got.Locale)

	all, err := s.Settings().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/models"
)

func enqueueJob(t *testing.T, s *Store, clock *testClock, eventID, notificationType string) *models.NotificationJob {
	t.Helper()
	job, err := s.Queue().Enqueue(context.Background(), &models.NotificationJob{
		EventID:          eventID,
		NotificationType: notificationType,
		Messages: []models.NotificationMessage{
			{Template: notificationType, Recipients: []string{"mod@example.org"}},
		},
	})
	require.NoError(t, err)
	// Distinct CreatedAt keeps the FIFO order deterministic.
	clock.Advance(time.Second)
	return job
}

func TestQueueClaimIsFIFO(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	first := enqueueJob(t, s, clock, "demo-1", models.NotificationTypeSubmissionReceived)
	second := enqueueJob(t, s, clock, "demo-2", models.NotificationTypeSubmissionReceived)

	claimed, err := s.Queue().ClaimNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	require.NotNil(t, claimed.ProcessingStartedAt)

	claimed, err = s.Queue().ClaimNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, claimed.ID)

	_, err = s.Queue().ClaimNext(ctx)
	assert.ErrorIs(t, err, ErrNoPendingJobs)
}

func TestQueueClaimEmpty(t *testing.T) {
	s := openTestStore(t, newTestClock())
	_, err := s.Queue().ClaimNext(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingJobs)
}

func TestQueueCompleteAndFail(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	enqueueJob(t, s, clock, "demo-1", models.NotificationTypeSubmissionReceived)
	enqueueJob(t, s, clock, "demo-2", models.NotificationTypeSubmissionReceived)

	ok, err := s.Queue().ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Queue().Complete(ctx, ok, 2))

	bad, err := s.Queue().ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Queue().Fail(ctx, bad, errors.New("smtp down")))

	jobs, err := s.Queue().List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, models.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, 2, jobs[0].MessagesSent)
	require.NotNil(t, jobs[0].ProcessedAt)
	assert.Equal(t, models.JobStatusError, jobs[1].Status)
	assert.Equal(t, "smtp down", jobs[1].Error)

	n, err := s.Queue().PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueHasInFlightAdminContact(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	_, err := s.Queue().Enqueue(ctx, &models.NotificationJob{
		EventID:           "demo-1",
		NotificationType:  models.NotificationTypeAdminPendingReminder,
		MarksAdminContact: true,
	})
	require.NoError(t, err)

	inflight, err := s.Queue().HasInFlightAdminContact(ctx, "demo-1")
	require.NoError(t, err)
	assert.True(t, inflight)

	// Other events are unaffected.
	inflight, err = s.Queue().HasInFlightAdminContact(ctx, "demo-2")
	require.NoError(t, err)
	assert.False(t, inflight)

	// Still in flight while processing.
	claimed, err := s.Queue().ClaimNext(ctx)
	require.NoError(t, err)
	inflight, err = s.Queue().HasInFlightAdminContact(ctx, "demo-1")
	require.NoError(t, err)
	assert.True(t, inflight)

	require.NoError(t, s.Queue().Complete(ctx, claimed, 1))
	inflight, err = s.Queue().HasInFlightAdminContact(ctx, "demo-1")
	require.NoError(t, err)
	assert.False(t, inflight)

	// A job that does not mark admin contact never counts.
	_, err = s.Queue().Enqueue(ctx, &models.NotificationJob{
		EventID:          "demo-1",
		NotificationType: models.NotificationTypeSubmissionReceived,
	})
	require.NoError(t, err)
	inflight, err = s.Queue().HasInFlightAdminContact(ctx, "demo-1")
	require.NoError(t, err)
	assert.False(t, inflight)
}

func TestQueueRewriteDemoRefs(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, clock)
	ctx := context.Background()

	enqueueJob(t, s, clock, "dup", models.NotificationTypeSubmissionReceived)
	enqueueJob(t, s, clock, "dup", models.NotificationTypeAdminPendingReminder)
	enqueueJob(t, s, clock, "other", models.NotificationTypeSubmissionReceived)

	n, err := s.Queue().RewriteDemoRefs(ctx, "dup", "primary")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	jobs, err := s.Queue().List(ctx)
	require.NoError(t, err)
	var primary, other int
	for _, j := range jobs {
		switch j.EventID {
		case "primary":
			primary++
		case "other":
			other++
		}
	}
	assert.Equal(t, 2, primary)
	assert.Equal(t, 1, other)
}

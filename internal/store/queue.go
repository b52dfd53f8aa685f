// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
)

// QueueStore is the durable notification job queue. Keys embed the enqueue
// timestamp so a prefix scan walks jobs in FIFO order; the claim transition
// is a compare-and-swap inside one transaction, so two dispatchers cannot
// claim the same job.
type QueueStore struct {
	db    *badger.DB
	clock Clock
}

func queueKey(createdAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixQueue, createdAt.UnixNano(), id))
}

// Enqueue appends a pending job and returns the stored copy.
func (s *QueueStore) Enqueue(ctx context.Context, job *models.NotificationJob) (*models.NotificationJob, error) {
	start := time.Now()
	stored := job.CloneJob()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock.Now().UTC()
	}
	if stored.Status == "" {
		stored.Status = models.JobStatusPending
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, queueKey(stored.CreatedAt, stored.ID), stored)
	})
	metrics.ObserveStoreOp("enqueue", "demo_notifications_queue", start, err)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ClaimNext atomically moves the oldest pending job to processing and
// returns it. ErrNoPendingJobs when the queue holds no pending work.
func (s *QueueStore) ClaimNext(ctx context.Context) (*models.NotificationJob, error) {
	start := time.Now()
	var claimed *models.NotificationJob
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		claimed = nil
		var found *models.NotificationJob
		if err := scanDocs(txn, prefixQueue, func(j *models.NotificationJob) bool {
			if j.Status == models.JobStatusPending {
				found = j
				return false
			}
			return true
		}); err != nil {
			return err
		}
		if found == nil {
			return ErrNoPendingJobs
		}
		now := s.clock.Now().UTC()
		found.Status = models.JobStatusProcessing
		found.ProcessingStartedAt = &now
		if err := putDoc(txn, queueKey(found.CreatedAt, found.ID), found); err != nil {
			return err
		}
		claimed = found
		return nil
	})
	metrics.ObserveStoreOp("claim", "demo_notifications_queue", start, err)
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Complete marks a processing job completed, recording how many messages
// went out.
func (s *QueueStore) Complete(ctx context.Context, job *models.NotificationJob, sent int) error {
	return s.finish(job, func(j *models.NotificationJob, now time.Time) {
		j.Status = models.JobStatusCompleted
		j.ProcessedAt = &now
		j.MessagesSent = sent
		j.Error = ""
	})
}

// Fail marks a processing job errored. Errored jobs stay on the queue for
// operator inspection; they are not retried automatically.
func (s *QueueStore) Fail(ctx context.Context, job *models.NotificationJob, cause error) error {
	return s.finish(job, func(j *models.NotificationJob, now time.Time) {
		j.Status = models.JobStatusError
		j.ProcessedAt = &now
		if cause != nil {
			j.Error = cause.Error()
		}
	})
}

func (s *QueueStore) finish(job *models.NotificationJob, apply func(*models.NotificationJob, time.Time)) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		key := queueKey(job.CreatedAt, job.ID)
		var j models.NotificationJob
		if err := getDoc(txn, key, &j); err != nil {
			return err
		}
		apply(&j, s.clock.Now().UTC())
		return putDoc(txn, key, &j)
	})
}

// HasInFlightAdminContact reports whether a pending or processing job that
// marks admin contact already references the event. The reminder sweep uses
// this to suppress duplicate reminders while one is still on the queue.
func (s *QueueStore) HasInFlightAdminContact(ctx context.Context, eventID string) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixQueue, func(j *models.NotificationJob) bool {
			if j.EventID == eventID && j.MarksAdminContact &&
				(j.Status == models.JobStatusPending || j.Status == models.JobStatusProcessing) {
				found = true
				return false
			}
			return true
		})
	})
	return found, err
}

// PendingCount returns the number of pending jobs; exported as the queue
// depth gauge.
func (s *QueueStore) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixQueue, func(j *models.NotificationJob) bool {
			if j.Status == models.JobStatusPending {
				n++
			}
			return true
		})
	})
	return n, err
}

// List returns every job in FIFO order, for the moderation surface.
func (s *QueueStore) List(ctx context.Context) ([]*models.NotificationJob, error) {
	var out []*models.NotificationJob
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixQueue, func(j *models.NotificationJob) bool {
			out = append(out, j)
			return true
		})
	})
	return out, err
}

// RewriteDemoRefs repoints queued jobs from one event id to another. The
// duplicate merger calls this so in-flight notifications follow the merge
// primary.
func (s *QueueStore) RewriteDemoRefs(ctx context.Context, fromID, toID string) (int, error) {
	var rewritten int
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		rewritten = 0
		var hits []*models.NotificationJob
		if err := scanDocs(txn, prefixQueue, func(j *models.NotificationJob) bool {
			if j.EventID == fromID {
				hits = append(hits, j)
			}
			return true
		}); err != nil {
			return err
		}
		for _, j := range hits {
			j.EventID = toID
			if err := putDoc(txn, queueKey(j.CreatedAt, j.ID), j); err != nil {
				return err
			}
			rewritten++
		}
		return nil
	})
	return rewritten, err
}

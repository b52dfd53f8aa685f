// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package notify drains the durable notification queue and keeps the
// 24-hour admin reminder cadence.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/mailer"
	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// reminderInterval is the minimum spacing between admin reminders for the
// same pending event. The source of truth is the event's
// admin_notification_last_sent_at stamp, not the queue, so concurrent
// producers cannot break the cadence.
const reminderInterval = 24 * time.Hour

// Config holds dispatcher settings.
type Config struct {
	// AdminRecipients receive pending-submission reminders.
	AdminRecipients []string `koanf:"admin_recipients"`

	// BaseURL prefixes the moderation deep links in reminder mails.
	BaseURL string `koanf:"base_url"`
}

// Dispatcher owns queue draining and the reminder sweep.
type Dispatcher struct {
	cfg        Config
	events     store.EventCollection
	queue      *store.QueueStore
	submitters *store.SubmitterStore
	mail       mailer.Mailer
	clock      dateutil.Clock
}

// NewDispatcher wires a dispatcher over the audited event collection.
func NewDispatcher(cfg Config, events store.EventCollection, queue *store.QueueStore, submitters *store.SubmitterStore, mail mailer.Mailer, clock dateutil.Clock) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		events:     events,
		queue:      queue,
		submitters: submitters,
		mail:       mail,
		clock:      clock,
	}
}

// RunOnce performs one dispatch cycle: sweep for due admin reminders,
// then drain the queue.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	sweepErr := d.EnqueueAdminReminders(ctx)
	drainErr := d.Drain(ctx)

	if depth, err := d.queue.PendingCount(ctx); err == nil {
		metrics.NotificationQueueDepth.Set(float64(depth))
	}

	if sweepErr != nil {
		return sweepErr
	}
	return drainErr
}

// Drain claims and processes pending jobs in FIFO order until the queue
// is empty. Job failures mark the job errored and do not stop the drain.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := d.queue.ClaimNext(ctx)
		if errors.Is(err, store.ErrNoPendingJobs) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		d.process(ctx, job)
	}
}

// process delivers one claimed job. Send failures transition the job to
// error with the cause; operators re-enqueue manually.
func (d *Dispatcher) process(ctx context.Context, job *models.NotificationJob) {
	sent := 0
	for _, msg := range job.Messages {
		if err := d.mail.Send(ctx, msg); err != nil {
			logging.Err(err).Str("job_id", job.ID).Str("template", msg.Template).
				Msg("notification send failed")
			if ferr := d.queue.Fail(ctx, job, err); ferr != nil {
				logging.Err(ferr).Str("job_id", job.ID).Msg("marking job errored failed")
			}
			metrics.NotificationJobsProcessed.WithLabelValues(job.NotificationType, "error").Inc()
			return
		}
		sent++
		metrics.NotificationMessagesSent.Inc()
	}

	if err := d.queue.Complete(ctx, job, sent); err != nil {
		logging.Err(err).Str("job_id", job.ID).Msg("marking job completed failed")
		return
	}
	metrics.NotificationJobsProcessed.WithLabelValues(job.NotificationType, "completed").Inc()

	if job.MarksAdminContact && job.EventID != "" {
		now := d.clock.Now().UTC()
		if _, err := d.events.UpdateOne(ctx, store.ByID(job.EventID), store.Update{
			AdminNotificationLastSentAt: &now,
		}); err != nil {
			logging.Err(err).Str("event_id", job.EventID).
				Msg("stamping admin contact time failed")
		}
	}
}

// EnqueueAdminReminders scans for pending submissions that have not been
// brought to the moderators' attention within the reminder interval and
// enqueues one reminder job each. In-flight reminder jobs suppress
// re-enqueueing.
func (d *Dispatcher) EnqueueAdminReminders(ctx context.Context) error {
	if len(d.cfg.AdminRecipients) == 0 {
		return nil
	}
	now := d.clock.Now().UTC()
	cutoff := now.Add(-reminderInterval)
	today := dateutil.DateOf(now).String()

	pending, err := d.events.Find(ctx, store.Filter{
		Approved:             store.Bool(false),
		Rejected:             store.Bool(false),
		Cancelled:            store.Bool(false),
		InPast:               store.Bool(false),
		Merged:               store.Bool(false),
		DateGTE:              today,
		AdminContactedBefore: &cutoff,
	})
	if err != nil {
		return fmt.Errorf("scan pending submissions: %w", err)
	}

	var firstErr error
	for _, e := range pending {
		inFlight, err := d.queue.HasInFlightAdminContact(ctx, e.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if inFlight {
			continue
		}
		if _, err := d.queue.Enqueue(ctx, d.reminderJob(ctx, e)); err != nil {
			logging.Err(err).Str("event_id", e.ID).Msg("enqueue admin reminder failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.RemindersEnqueued.Inc()
	}
	return firstErr
}

// reminderJob builds the admin reminder for one pending event, carrying
// the moderation deep links and the submitter's contact details.
func (d *Dispatcher) reminderJob(ctx context.Context, e *models.Event) *models.NotificationJob {
	msgCtx := map[string]any{
		"title":       e.Title,
		"date":        e.Date,
		"city":        e.City,
		"approve_url": fmt.Sprintf("%s/moderation/demo/%s/approve", d.cfg.BaseURL, e.ID),
		"preview_url": fmt.Sprintf("%s/moderation/demo/%s/preview", d.cfg.BaseURL, e.ID),
		"reject_url":  fmt.Sprintf("%s/moderation/demo/%s/reject", d.cfg.BaseURL, e.ID),
	}
	if subs, err := d.submitters.ByDemo(ctx, e.ID); err == nil && len(subs) > 0 {
		msgCtx["submitter_name"] = subs[0].Name
		msgCtx["submitter_email"] = subs[0].Email
	}

	return &models.NotificationJob{
		EventID:           e.ID,
		NotificationType:  models.NotificationTypeAdminPendingReminder,
		MarksAdminContact: true,
		Messages: []models.NotificationMessage{{
			Template:   models.NotificationTypeAdminPendingReminder,
			Subject:    fmt.Sprintf("Odottava mielenosoitus: %s (%s)", e.Title, e.Date),
			Recipients: d.cfg.AdminRecipients,
			Context:    msgCtx,
		}},
	}
}

// EnqueueSubmissionReceived queues the confirmation mail for a fresh
// submission.
func (d *Dispatcher) EnqueueSubmissionReceived(ctx context.Context, e *models.Event, submitterEmail string) error {
	_, err := d.queue.Enqueue(ctx, &models.NotificationJob{
		EventID:          e.ID,
		NotificationType: models.NotificationTypeSubmissionReceived,
		Messages: []models.NotificationMessage{{
			Template:   models.NotificationTypeSubmissionReceived,
			Subject:    "Mielenosoitusilmoitus vastaanotettu",
			Recipients: []string{submitterEmail},
			Context: map[string]any{
				"title": e.Title,
				"date":  e.Date,
			},
		}},
	})
	return err
}

// EnqueueDisposition queues the accepted/rejected mail after moderation.
func (d *Dispatcher) EnqueueDisposition(ctx context.Context, e *models.Event, accepted bool, reason string) error {
	subs, err := d.submitters.ByDemo(ctx, e.ID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	notifType := models.NotificationTypeSubmissionRejected
	subject := fmt.Sprintf("Mielenosoitusilmoitus hylätty: %s", e.Title)
	if accepted {
		notifType = models.NotificationTypeSubmissionAccepted
		subject = fmt.Sprintf("Mielenosoitus hyväksytty: %s", e.Title)
	}

	_, err = d.queue.Enqueue(ctx, &models.NotificationJob{
		EventID:          e.ID,
		NotificationType: notifType,
		Messages: []models.NotificationMessage{{
			Template:   notifType,
			Subject:    subject,
			Recipients: []string{subs[0].Email},
			Context: map[string]any{
				"title":      e.Title,
				"date":       e.Date,
				"reason":     reason,
				"public_url": fmt.Sprintf("%s/demonstration/%s", d.cfg.BaseURL, e.Slug),
			},
		}},
	})
	return err
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package models

import "time"

// JobStatus is the lifecycle state of a notification job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Notification types carried on the queue.
const (
	NotificationTypeAdminPendingReminder = "admin_pending_reminder"
	NotificationTypeSubmissionReceived   = "submission_received"
	NotificationTypeSubmissionAccepted   = "submission_accepted"
	NotificationTypeSubmissionRejected   = "submission_rejected"
	NotificationTypeRecurringCreated     = "recurring_created"
)

// NotificationMessage is one outbound message inside a job. Rendering is the
// mailer's concern; the queue only carries the template key, subject,
// recipients and context.
type NotificationMessage struct {
	Template   string         `json:"template"`
	Subject    string         `json:"subject"`
	Recipients []string       `json:"recipients"`
	Context    map[string]any `json:"context,omitempty"`
}

// NotificationJob is a durable queue entry. The queue is FIFO by CreatedAt;
// workers claim jobs with an atomic pending-to-processing transition.
type NotificationJob struct {
	ID      string    `json:"_id"`
	EventID string    `json:"event_id,omitempty"`
	Status  JobStatus `json:"status"`

	CreatedAt           time.Time  `json:"created_at"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`

	NotificationType string `json:"notification_type"`

	// MarksAdminContact: completing this job advances the event's
	// admin_notification_last_sent_at, closing the 24h reminder loop.
	MarksAdminContact bool `json:"marks_admin_contact"`

	Messages     []NotificationMessage `json:"messages"`
	MessagesSent int                   `json:"messages_sent"`
	Error        string                `json:"error,omitempty"`
}

// CloneJob returns a deep copy of the job.
func (j *NotificationJob) CloneJob() *NotificationJob {
	if j == nil {
		return nil
	}
	cp := *j
	if j.ProcessingStartedAt != nil {
		t := *j.ProcessingStartedAt
		cp.ProcessingStartedAt = &t
	}
	if j.ProcessedAt != nil {
		t := *j.ProcessedAt
		cp.ProcessedAt = &t
	}
	if j.Messages != nil {
		cp.Messages = make([]NotificationMessage, len(j.Messages))
		for i, m := range j.Messages {
			cp.Messages[i] = m
			if m.Recipients != nil {
				cp.Messages[i].Recipients = append([]string(nil), m.Recipients...)
			}
			if m.Context != nil {
				cc := make(map[string]any, len(m.Context))
				for k, v := range m.Context {
					cc[k] = v
				}
				cp.Messages[i].Context = cc
			}
		}
	}
	return &cp
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package metrics exposes Prometheus instrumentation for the event store,
// the background jobs, the audit recorder and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Duration of event store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_errors_total",
			Help: "Total number of event store operation errors",
		},
		[]string{"operation", "collection"},
	)

	// Audit metrics. Audit persistence failures never abort the underlying
	// mutation; this counter is the only visibility into lost audit rows.
	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of failed audit log writes",
		},
	)

	AuditEntriesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Total number of audit entries written",
		},
		[]string{"action"},
	)

	// Background job metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "outcome"},
	)

	JobRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_run_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"job"},
	)

	// Recurrence expander metrics
	TemplatesExpanded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_templates_expanded_total",
			Help: "Total number of recurring templates processed",
		},
	)

	ChildEventsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_children_created_total",
			Help: "Total number of child events materialised by the expander",
		},
	)

	DuplicatesMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicates_merged_total",
			Help: "Total number of duplicate events folded into a primary",
		},
	)

	// Notification metrics
	NotificationJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_jobs_processed_total",
			Help: "Total number of notification jobs drained from the queue",
		},
		[]string{"type", "status"},
	)

	NotificationMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_messages_sent_total",
			Help: "Total number of messages submitted to the mailer",
		},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Current number of pending notification jobs",
		},
	)

	RemindersEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_reminders_enqueued_total",
			Help: "Total number of admin pending-reminder jobs enqueued",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveStoreOp records duration and outcome of a store operation.
func ObserveStoreOp(operation, collection string, start time.Time, err error) {
	StoreOpDuration.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation, collection).Inc()
	}
}

// ObserveAPIRequest records a completed HTTP request.
func ObserveAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
)

// AuditStore is the append-only audit log (demo_audit_logs) and edit
// history (demo_edit_history). Rows are only ever added; there is no
// update or delete surface.
type AuditStore struct {
	db    *badger.DB
	clock Clock
}

// Keys embed the timestamp so prefix scans return rows in write order.
func auditKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixAuditLog, ts.UnixNano(), id))
}

func historyKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixHistory, ts.UnixNano(), id))
}

// AppendEntry writes one audit log row, assigning id and timestamp as
// needed, and returns the stored copy.
func (s *AuditStore) AppendEntry(ctx context.Context, e *models.AuditEntry) (*models.AuditEntry, error) {
	stored := *e
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.clock.Now().UTC()
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, auditKey(stored.Timestamp, stored.ID), &stored)
	})
	if err != nil {
		return nil, err
	}
	metrics.AuditEntriesWritten.WithLabelValues(stored.Action).Inc()
	return &stored, nil
}

// AppendHistory writes one before/after image row and returns the stored
// copy.
func (s *AuditStore) AppendHistory(ctx context.Context, h *models.EventHistory) (*models.EventHistory, error) {
	stored := *h
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.EditedAt.IsZero() {
		stored.EditedAt = s.clock.Now().UTC()
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, historyKey(stored.EditedAt, stored.ID), &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// EntriesByEvent returns the audit trail of one event, oldest first.
func (s *AuditStore) EntriesByEvent(ctx context.Context, eventID string) ([]*models.AuditEntry, error) {
	var out []*models.AuditEntry
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixAuditLog, func(e *models.AuditEntry) bool {
			if e.EventID == eventID {
				out = append(out, e)
			}
			return true
		})
	})
	return out, err
}

// HistoryByEvent returns the edit history of one event, oldest first.
func (s *AuditStore) HistoryByEvent(ctx context.Context, eventID string) ([]*models.EventHistory, error) {
	var out []*models.EventHistory
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixHistory, func(h *models.EventHistory) bool {
			if h.EventID == eventID {
				out = append(out, h)
			}
			return true
		})
	})
	return out, err
}

// EntriesByRun returns every audit row a single job run produced.
func (s *AuditStore) EntriesByRun(ctx context.Context, runID string) ([]*models.AuditEntry, error) {
	var out []*models.AuditEntry
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixAuditLog, func(e *models.AuditEntry) bool {
			if e.Actor.RunID == runID {
				out = append(out, e)
			}
			return true
		})
	})
	return out, err
}

// RecentEntries returns the newest n audit rows, newest first.
func (s *AuditStore) RecentEntries(ctx context.Context, n int) ([]*models.AuditEntry, error) {
	var all []*models.AuditEntry
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixAuditLog, func(e *models.AuditEntry) bool {
			all = append(all, e)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

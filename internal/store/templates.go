// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
)

// TemplateStore holds recurring templates (the recu_demos collection).
type TemplateStore struct {
	db    *badger.DB
	clock Clock
}

func templateKey(id string) []byte { return []byte(prefixTemplate + id) }

// Get returns one template by id.
func (s *TemplateStore) Get(ctx context.Context, id string) (*models.RecurringTemplate, error) {
	var t models.RecurringTemplate
	err := s.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, templateKey(id), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns every template.
func (s *TemplateStore) List(ctx context.Context) ([]*models.RecurringTemplate, error) {
	start := time.Now()
	var out []*models.RecurringTemplate
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixTemplate, func(t *models.RecurringTemplate) bool {
			out = append(out, t)
			return true
		})
	})
	metrics.ObserveStoreOp("list", "recu_demos", start, err)
	return out, err
}

// Insert stores a new template, assigning id and timestamps as needed.
func (s *TemplateStore) Insert(ctx context.Context, t *models.RecurringTemplate) (*models.RecurringTemplate, error) {
	stored := t.CloneTemplate()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := s.clock.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if now.After(stored.LastModified) {
		stored.LastModified = now
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, templateKey(stored.ID), stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Put replaces a template document wholesale, bumping last_modified.
func (s *TemplateStore) Put(ctx context.Context, t *models.RecurringTemplate) error {
	stored := t.CloneTemplate()
	now := s.clock.Now().UTC()
	if now.After(stored.LastModified) {
		stored.LastModified = now
	}
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, templateKey(stored.ID), stored)
	})
}

// Mutate applies fn to the template inside one transaction, so concurrent
// created_until advances and frozen-children edits cannot lose updates.
func (s *TemplateStore) Mutate(ctx context.Context, id string, fn func(*models.RecurringTemplate) error) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		var t models.RecurringTemplate
		if err := getDoc(txn, templateKey(id), &t); err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if now.After(t.LastModified) {
			t.LastModified = now
		}
		return putDoc(txn, templateKey(id), &t)
	})
}

// Delete removes a template. Children are untouched; the expander's
// off-schedule sweep only runs for live templates.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		return txn.Delete(templateKey(id))
	})
}

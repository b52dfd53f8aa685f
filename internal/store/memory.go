// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/slug"
)

// MemoryEvents is a mutex-guarded in-memory EventCollection with the same
// identity and invariant semantics as the Badger engine. Used in tests and
// as the baseline the engine tests compare against.
type MemoryEvents struct {
	mu     sync.Mutex
	clock  Clock
	nextRN int64
	docs   map[string]*models.Event
}

var _ EventCollection = (*MemoryEvents)(nil)

// NewMemoryEvents returns an empty in-memory collection. A nil clock
// selects the system clock.
func NewMemoryEvents(clock Clock) *MemoryEvents {
	if clock == nil {
		clock = systemClock{}
	}
	return &MemoryEvents{clock: clock, docs: make(map[string]*models.Event)}
}

func (m *MemoryEvents) matchesLocked(f Filter) []*models.Event {
	var out []*models.Event
	for _, e := range m.docs {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

func (m *MemoryEvents) slugTakenLocked(s string) bool {
	for _, e := range m.docs {
		if e.Slug == s {
			return true
		}
	}
	return false
}

func (m *MemoryEvents) validateLocked(e *models.Event) error {
	if err := validateDisposition(e); err != nil {
		return err
	}
	if e.MergedInto == "" {
		return nil
	}
	target, ok := m.docs[e.MergedInto]
	if !ok || !target.HasAlias(e.ID) {
		return fmt.Errorf("merge target %s: %w", e.MergedInto, ErrAliasAsymmetry)
	}
	return nil
}

func (m *MemoryEvents) insertLocked(e *models.Event) (*models.Event, error) {
	stored := e.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := m.clock.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if now.After(stored.LastModified) {
		stored.LastModified = now
	}
	if stored.RunningNumber == 0 {
		m.nextRN++
		stored.RunningNumber = m.nextRN
	} else if stored.RunningNumber > m.nextRN {
		m.nextRN = stored.RunningNumber
	}

	if err := m.validateLocked(stored); err != nil {
		return nil, err
	}

	base := stored.Slug
	if base == "" {
		base = slug.Make(stored.Title)
	}
	candidate := base
	for i := 2; m.slugTakenLocked(candidate); i++ {
		if i > slugRetries {
			return nil, fmt.Errorf("slug %q: %w", base, ErrDuplicateSlug)
		}
		candidate = slug.WithSuffix(base, i)
	}
	stored.Slug = candidate

	for _, existing := range m.docs {
		if existing.RunningNumber == stored.RunningNumber {
			return nil, fmt.Errorf("running number %d: %w", stored.RunningNumber, ErrDuplicateRunningNumber)
		}
	}

	m.docs[stored.ID] = stored
	return stored.Clone(), nil
}

func (m *MemoryEvents) Find(ctx context.Context, f Filter) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchesLocked(f)
	out := make([]*models.Event, len(matches))
	for i, e := range matches {
		out[i] = e.Clone()
	}
	return out, nil
}

func (m *MemoryEvents) FindOne(ctx context.Context, f Filter) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchesLocked(f)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0].Clone(), nil
}

func (m *MemoryEvents) Insert(ctx context.Context, e *models.Event) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(e)
}

func (m *MemoryEvents) InsertMany(ctx context.Context, events []*models.Event) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Event, 0, len(events))
	for _, e := range events {
		stored, err := m.insertLocked(e)
		if err != nil {
			return out, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (m *MemoryEvents) updateLocked(f Filter, u Update, limit int) (int, []*models.Event, error) {
	matches := m.matchesLocked(f)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	var updated []*models.Event
	for _, e := range matches {
		next := e.Clone()
		u.Apply(next)
		if err := m.validateLocked(next); err != nil {
			return len(updated), updated, err
		}
		now := m.clock.Now().UTC()
		if now.After(next.LastModified) {
			next.LastModified = now
		}
		m.docs[next.ID] = next
		updated = append(updated, next.Clone())
	}
	return len(updated), updated, nil
}

func (m *MemoryEvents) UpdateOne(ctx context.Context, f Filter, u Update) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _, err := m.updateLocked(f, u, 1)
	return n, err
}

func (m *MemoryEvents) UpdateMany(ctx context.Context, f Filter, u Update) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _, err := m.updateLocked(f, u, 0)
	return n, err
}

func (m *MemoryEvents) FindOneAndUpdate(ctx context.Context, f Filter, u Update) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, updated, err := m.updateLocked(f, u, 1)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return updated[0], nil
}

func (m *MemoryEvents) ReplaceOne(ctx context.Context, f Filter, replacement *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchesLocked(f)
	if len(matches) == 0 {
		return ErrNotFound
	}
	current := matches[0]
	next := replacement.Clone()
	next.ID = current.ID
	next.Slug = current.Slug
	next.RunningNumber = current.RunningNumber
	next.CreatedAt = current.CreatedAt
	if next.LastModified.Before(current.LastModified) {
		next.LastModified = current.LastModified
	}
	now := m.clock.Now().UTC()
	if now.After(next.LastModified) {
		next.LastModified = now
	}
	if err := m.validateLocked(next); err != nil {
		return err
	}
	m.docs[next.ID] = next
	return nil
}

func (m *MemoryEvents) Upsert(ctx context.Context, f Filter, e *models.Event) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.docs {
		if existing.Parent == f.Parent && existing.Date == f.Date {
			return false, existing.ID, nil
		}
	}
	stored, err := m.insertLocked(e)
	if err != nil {
		return false, "", err
	}
	return true, stored.ID, nil
}

func (m *MemoryEvents) deleteLocked(f Filter, limit int) int {
	matches := m.matchesLocked(f)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	for _, e := range matches {
		delete(m.docs, e.ID)
	}
	return len(matches)
}

func (m *MemoryEvents) DeleteOne(ctx context.Context, f Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(f, 1), nil
}

func (m *MemoryEvents) DeleteMany(ctx context.Context, f Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(f, 0), nil
}

func (m *MemoryEvents) BulkWrite(ctx context.Context, ops []WriteOp) (*BulkResult, error) {
	res := &BulkResult{
		InsertedIDs: make(map[int]string),
		UpsertedIDs: make(map[int]string),
	}
	for i, op := range ops {
		switch {
		case op.Insert != nil:
			stored, err := m.Insert(ctx, op.Insert)
			if err != nil {
				return res, fmt.Errorf("bulk op %d (insert): %w", i, err)
			}
			res.Inserted++
			res.InsertedIDs[i] = stored.ID
		case op.Update != nil:
			var n int
			var err error
			if op.Update.Many {
				n, err = m.UpdateMany(ctx, op.Update.Filter, op.Update.Update)
			} else {
				n, err = m.UpdateOne(ctx, op.Update.Filter, op.Update.Update)
			}
			if err != nil {
				return res, fmt.Errorf("bulk op %d (update): %w", i, err)
			}
			res.Updated += n
		case op.Delete != nil:
			var n int
			var err error
			if op.Delete.Many {
				n, err = m.DeleteMany(ctx, op.Delete.Filter)
			} else {
				n, err = m.DeleteOne(ctx, op.Delete.Filter)
			}
			if err != nil {
				return res, fmt.Errorf("bulk op %d (delete): %w", i, err)
			}
			res.Deleted += n
		case op.Upsert != nil:
			created, id, err := m.Upsert(ctx, op.Upsert.Filter, op.Upsert.Event)
			if err != nil {
				return res, fmt.Errorf("bulk op %d (upsert): %w", i, err)
			}
			if created {
				res.Inserted++
			}
			res.UpsertedIDs[i] = id
		}
	}
	return res, nil
}

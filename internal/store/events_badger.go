// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/slug"
)

// slugRetries bounds the numeric-suffix disambiguation loop on insert.
const slugRetries = 1000

// badgerEvents is the Badger-backed EventCollection. All index maintenance
// happens inside the same transaction as the document write.
type badgerEvents struct {
	db    *badger.DB
	seq   *badger.Sequence
	clock Clock
}

var _ EventCollection = (*badgerEvents)(nil)

func demoKey(id string) []byte           { return []byte(prefixDemo + id) }
func slugKey(s string) []byte            { return []byte(prefixDemoSlug + s) }
func rnKey(n int64) []byte               { return []byte(fmt.Sprintf("%s%020d", prefixDemoRN, n)) }
func parentKey(parent, date string) []byte {
	return []byte(prefixDemoParent + parent + ":" + date)
}

func getEvent(txn *badger.Txn, id string) (*models.Event, error) {
	item, err := txn.Get(demoKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	var e models.Event
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	}); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", id, err)
	}
	return &e, nil
}

func putEvent(txn *badger.Txn, e *models.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return txn.Set(demoKey(e.ID), data)
}

// scanEvents walks the demonstrations prefix and calls fn on every match.
// Stops early when fn returns false.
func scanEvents(txn *badger.Txn, f Filter, fn func(*models.Event) bool) error {
	// Direct id lookups skip the full scan.
	if f.ID != "" {
		e, err := getEvent(txn, f.ID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if f.Matches(e) {
			fn(e)
		}
		return nil
	}
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			e, err := getEvent(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if f.Matches(e) && !fn(e) {
				return nil
			}
		}
		return nil
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(prefixDemo)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var e models.Event
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if f.Matches(&e) && !fn(&e) {
			return nil
		}
	}
	return nil
}

func sortEvents(events []*models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].RunningNumber < events[j].RunningNumber
	})
}

// validateDisposition refuses writes that would violate the approved /
// rejected exclusivity invariant.
func validateDisposition(e *models.Event) error {
	if e.Approved && e.Rejected {
		return fmt.Errorf("event %s: %w", e.ID, ErrInvalidDisposition)
	}
	return nil
}

// validateMergeTarget refuses a merged_into write whose target does not
// already carry the back-reference. The merger adds the alias to the
// primary first, so a well-formed merge always passes.
func validateMergeTarget(txn *badger.Txn, e *models.Event) error {
	if e.MergedInto == "" {
		return nil
	}
	target, err := getEvent(txn, e.MergedInto)
	if err != nil {
		return fmt.Errorf("merge target %s: %w", e.MergedInto, ErrAliasAsymmetry)
	}
	if !target.HasAlias(e.ID) {
		return fmt.Errorf("merge target %s missing alias %s: %w", target.ID, e.ID, ErrAliasAsymmetry)
	}
	return nil
}

// bumpLastModified keeps last_modified non-decreasing per event.
func (c *badgerEvents) bumpLastModified(e *models.Event) {
	now := c.clock.Now().UTC()
	if now.After(e.LastModified) {
		e.LastModified = now
	}
}

func (c *badgerEvents) Find(ctx context.Context, f Filter) ([]*models.Event, error) {
	start := time.Now()
	var out []*models.Event
	err := c.db.View(func(txn *badger.Txn) error {
		return scanEvents(txn, f, func(e *models.Event) bool {
			out = append(out, e)
			return true
		})
	})
	metrics.ObserveStoreOp("find", "demonstrations", start, err)
	if err != nil {
		return nil, err
	}
	sortEvents(out)
	return out, nil
}

func (c *badgerEvents) FindOne(ctx context.Context, f Filter) (*models.Event, error) {
	events, err := c.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events[0], nil
}

// prepareInsert fills in identity fields. The slug index reservation
// happens in the caller's transaction.
func (c *badgerEvents) prepareInsert(e *models.Event) (*models.Event, error) {
	stored := e.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := c.clock.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if now.After(stored.LastModified) {
		stored.LastModified = now
	}
	if stored.RunningNumber == 0 {
		n, err := c.seq.Next()
		if err != nil {
			return nil, fmt.Errorf("allocate running number: %w", err)
		}
		stored.RunningNumber = int64(n) + 1 // running numbers start at 1
	}
	return stored, nil
}

// insertInTxn writes the document and reserves its indexes. The slug
// uniqueness retry loop runs here, inside the transaction, so concurrent
// submitters cannot both claim the same suffix.
func insertInTxn(txn *badger.Txn, stored *models.Event) error {
	if err := validateDisposition(stored); err != nil {
		return err
	}
	if err := validateMergeTarget(txn, stored); err != nil {
		return err
	}

	base := stored.Slug
	if base == "" {
		base = slug.Make(stored.Title)
	}
	candidate := base
	reserved := false
	for i := 2; i <= slugRetries; i++ {
		_, err := txn.Get(slugKey(candidate))
		if errors.Is(err, badger.ErrKeyNotFound) {
			reserved = true
			break
		}
		if err != nil {
			return fmt.Errorf("check slug %q: %w", candidate, err)
		}
		candidate = slug.WithSuffix(base, i)
	}
	if !reserved {
		return fmt.Errorf("slug %q: %w", base, ErrDuplicateSlug)
	}
	stored.Slug = candidate

	if _, err := txn.Get(rnKey(stored.RunningNumber)); err == nil {
		return fmt.Errorf("running number %d: %w", stored.RunningNumber, ErrDuplicateRunningNumber)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check running number: %w", err)
	}

	if err := putEvent(txn, stored); err != nil {
		return err
	}
	if err := txn.Set(slugKey(stored.Slug), []byte(stored.ID)); err != nil {
		return fmt.Errorf("index slug: %w", err)
	}
	if err := txn.Set(rnKey(stored.RunningNumber), []byte(stored.ID)); err != nil {
		return fmt.Errorf("index running number: %w", err)
	}
	if stored.Parent != "" {
		if err := txn.Set(parentKey(stored.Parent, stored.Date), []byte(stored.ID)); err != nil {
			return fmt.Errorf("index schedule slot: %w", err)
		}
	}
	return nil
}

func (c *badgerEvents) Insert(ctx context.Context, e *models.Event) (*models.Event, error) {
	start := time.Now()
	stored, err := c.prepareInsert(e)
	if err != nil {
		metrics.ObserveStoreOp("insert", "demonstrations", start, err)
		return nil, err
	}

	for attempt := 0; attempt < txnRetries; attempt++ {
		err = c.db.Update(func(txn *badger.Txn) error {
			return insertInTxn(txn, stored)
		})
		if !isConflict(err) {
			break
		}
	}
	metrics.ObserveStoreOp("insert", "demonstrations", start, err)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (c *badgerEvents) InsertMany(ctx context.Context, events []*models.Event) ([]*models.Event, error) {
	out := make([]*models.Event, 0, len(events))
	for _, e := range events {
		stored, err := c.Insert(ctx, e)
		if err != nil {
			return out, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// applyInTxn applies an update to one event and maintains the schedule-slot
// index when the date moves.
func (c *badgerEvents) applyInTxn(txn *badger.Txn, e *models.Event, u Update) error {
	oldDate := e.Date
	u.Apply(e)
	if err := validateDisposition(e); err != nil {
		return err
	}
	if u.MergedInto != nil {
		if err := validateMergeTarget(txn, e); err != nil {
			return err
		}
	}
	c.bumpLastModified(e)

	if e.Parent != "" && e.Date != oldDate {
		if err := txn.Delete(parentKey(e.Parent, oldDate)); err != nil {
			return fmt.Errorf("drop schedule slot: %w", err)
		}
		if err := txn.Set(parentKey(e.Parent, e.Date), []byte(e.ID)); err != nil {
			return fmt.Errorf("index schedule slot: %w", err)
		}
	}
	return putEvent(txn, e)
}

func (c *badgerEvents) update(ctx context.Context, f Filter, u Update, limit int) (int, []*models.Event, error) {
	var updated []*models.Event
	var err error
	for attempt := 0; attempt < txnRetries; attempt++ {
		updated = updated[:0]
		err = c.db.Update(func(txn *badger.Txn) error {
			var matches []*models.Event
			if scanErr := scanEvents(txn, f, func(e *models.Event) bool {
				matches = append(matches, e)
				return limit <= 0 || len(matches) < limit
			}); scanErr != nil {
				return scanErr
			}
			sortEvents(matches)
			if limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}
			for _, e := range matches {
				if applyErr := c.applyInTxn(txn, e, u); applyErr != nil {
					return applyErr
				}
				updated = append(updated, e)
			}
			return nil
		})
		if !isConflict(err) {
			break
		}
	}
	if err != nil {
		return 0, nil, err
	}
	return len(updated), updated, nil
}

func (c *badgerEvents) UpdateOne(ctx context.Context, f Filter, u Update) (int, error) {
	start := time.Now()
	n, _, err := c.update(ctx, f, u, 1)
	metrics.ObserveStoreOp("update_one", "demonstrations", start, err)
	return n, err
}

func (c *badgerEvents) UpdateMany(ctx context.Context, f Filter, u Update) (int, error) {
	start := time.Now()
	n, _, err := c.update(ctx, f, u, 0)
	metrics.ObserveStoreOp("update_many", "demonstrations", start, err)
	return n, err
}

func (c *badgerEvents) FindOneAndUpdate(ctx context.Context, f Filter, u Update) (*models.Event, error) {
	start := time.Now()
	n, updated, err := c.update(ctx, f, u, 1)
	metrics.ObserveStoreOp("find_one_and_update", "demonstrations", start, err)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return updated[0], nil
}

func (c *badgerEvents) ReplaceOne(ctx context.Context, f Filter, replacement *models.Event) error {
	start := time.Now()
	var err error
	for attempt := 0; attempt < txnRetries; attempt++ {
		err = c.db.Update(func(txn *badger.Txn) error {
			var current *models.Event
			if scanErr := scanEvents(txn, f, func(e *models.Event) bool {
				current = e
				return false
			}); scanErr != nil {
				return scanErr
			}
			if current == nil {
				return ErrNotFound
			}

			next := replacement.Clone()
			// Identity fields survive replacement.
			next.ID = current.ID
			next.Slug = current.Slug
			next.RunningNumber = current.RunningNumber
			next.CreatedAt = current.CreatedAt
			if next.LastModified.Before(current.LastModified) {
				next.LastModified = current.LastModified
			}
			c.bumpLastModified(next)

			if err := validateDisposition(next); err != nil {
				return err
			}
			if err := validateMergeTarget(txn, next); err != nil {
				return err
			}

			if current.Parent != "" && (next.Parent != current.Parent || next.Date != current.Date) {
				if err := txn.Delete(parentKey(current.Parent, current.Date)); err != nil {
					return fmt.Errorf("drop schedule slot: %w", err)
				}
			}
			if next.Parent != "" {
				if err := txn.Set(parentKey(next.Parent, next.Date), []byte(next.ID)); err != nil {
					return fmt.Errorf("index schedule slot: %w", err)
				}
			}
			return putEvent(txn, next)
		})
		if !isConflict(err) {
			break
		}
	}
	metrics.ObserveStoreOp("replace_one", "demonstrations", start, err)
	return err
}

func (c *badgerEvents) Upsert(ctx context.Context, f Filter, e *models.Event) (bool, string, error) {
	start := time.Now()
	var created bool
	var id string

	stored, err := c.prepareInsert(e)
	if err != nil {
		metrics.ObserveStoreOp("upsert", "demonstrations", start, err)
		return false, "", err
	}

	for attempt := 0; attempt < txnRetries; attempt++ {
		created, id = false, ""
		err = c.db.Update(func(txn *badger.Txn) error {
			// The schedule-slot index is the at-most-once guard: a
			// concurrent expander run either sees the slot occupied or
			// conflicts on this key and retries.
			item, getErr := txn.Get(parentKey(f.Parent, f.Date))
			if getErr == nil {
				return item.Value(func(val []byte) error {
					id = string(val)
					return nil
				})
			}
			if !errors.Is(getErr, badger.ErrKeyNotFound) {
				return fmt.Errorf("check schedule slot: %w", getErr)
			}
			if insErr := insertInTxn(txn, stored); insErr != nil {
				return insErr
			}
			created, id = true, stored.ID
			return nil
		})
		if !isConflict(err) {
			break
		}
	}
	metrics.ObserveStoreOp("upsert", "demonstrations", start, err)
	if err != nil {
		return false, "", err
	}
	return created, id, nil
}

func (c *badgerEvents) delete(ctx context.Context, f Filter, limit int) (int, error) {
	var deleted int
	var err error
	for attempt := 0; attempt < txnRetries; attempt++ {
		deleted = 0
		err = c.db.Update(func(txn *badger.Txn) error {
			var matches []*models.Event
			if scanErr := scanEvents(txn, f, func(e *models.Event) bool {
				matches = append(matches, e)
				return limit <= 0 || len(matches) < limit
			}); scanErr != nil {
				return scanErr
			}
			for _, e := range matches {
				if err := txn.Delete(demoKey(e.ID)); err != nil {
					return err
				}
				if err := txn.Delete(slugKey(e.Slug)); err != nil {
					return err
				}
				if err := txn.Delete(rnKey(e.RunningNumber)); err != nil {
					return err
				}
				if e.Parent != "" {
					if err := txn.Delete(parentKey(e.Parent, e.Date)); err != nil {
						return err
					}
				}
				deleted++
			}
			return nil
		})
		if !isConflict(err) {
			break
		}
	}
	return deleted, err
}

func (c *badgerEvents) DeleteOne(ctx context.Context, f Filter) (int, error) {
	start := time.Now()
	n, err := c.delete(ctx, f, 1)
	metrics.ObserveStoreOp("delete_one", "demonstrations", start, err)
	return n, err
}

func (c *badgerEvents) DeleteMany(ctx context.Context, f Filter) (int, error) {
	start := time.Now()
	n, err := c.delete(ctx, f, 0)
	metrics.ObserveStoreOp("delete_many", "demonstrations", start, err)
	return n, err
}

func (c *badgerEvents) BulkWrite(ctx context.Context, ops []WriteOp) (*BulkResult, error) {
	res := &BulkResult{
		InsertedIDs: make(map[int]string),
		UpsertedIDs: make(map[int]string),
	}
	for i, op := range ops {
		switch {
		case op.Insert != nil:
			stored, err := c.Insert(ctx, op.Insert)
			if err != nil {
				return res, fmt.Errorf("bulk op %d (insert): %w", i, err)
			}
			res.Inserted++
			res.InsertedIDs[i] = stored.ID
		case op.Update != nil:
			var n int
			var err error
			if op.Update.Many {
				n, err = c.UpdateMany(ctx, op.Update.Filter, op.Update.Update)
			} else {
				n, err = c.UpdateOne(ctx, op.Update.Filter, op.Update.Update)
			}
			if err != nil {
				return res, fmt.Errorf("bulk op %d (update): %w", i, err)
			}
			res.Updated += n
		case op.Delete != nil:
			var n int
			var err error
			if op.Delete.Many {
				n, err = c.DeleteMany(ctx, op.Delete.Filter)
			} else {
				n, err = c.DeleteOne(ctx, op.Delete.Filter)
			}
			if err != nil {
				return res, fmt.Errorf("bulk op %d (delete): %w", i, err)
			}
			res.Deleted += n
		case op.Upsert != nil:
			created, id, err := c.Upsert(ctx, op.Upsert.Filter, op.Upsert.Event)
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

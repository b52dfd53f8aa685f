// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package audit records before/after images and audit log entries for
// every mutation of the demonstrations collection.
//
// The Recorder decorates the store's event collection: inside an audit
// scope each write is snapshotted before and after and produces one
// EventHistory row plus one AuditEntry per affected document. Outside a
// scope writes pass through untouched; only bootstrap paths run unscoped.
package audit

import (
	"context"
	"sort"

	"github.com/goccy/go-json"

	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// Recorder is the audit-aware EventCollection. Wrap the raw collection
// once at wiring time; no caller should hold the raw collection after
// that.
type Recorder struct {
	inner store.EventCollection
	log   *store.AuditStore
}

var _ store.EventCollection = (*Recorder)(nil)

// NewRecorder decorates an event collection with audit recording.
func NewRecorder(inner store.EventCollection, log *store.AuditStore) *Recorder {
	return &Recorder{inner: inner, log: log}
}

// Unaudited returns the raw collection for bootstrap use.
func (r *Recorder) Unaudited() store.EventCollection { return r.inner }

func (r *Recorder) Find(ctx context.Context, f store.Filter) ([]*models.Event, error) {
	return r.inner.Find(ctx, f)
}

func (r *Recorder) FindOne(ctx context.Context, f store.Filter) (*models.Event, error) {
	return r.inner.FindOne(ctx, f)
}

func (r *Recorder) Insert(ctx context.Context, e *models.Event) (*models.Event, error) {
	stored, err := r.inner.Insert(ctx, e)
	if err != nil {
		return nil, err
	}
	if scope := ScopeFrom(ctx); scope != nil {
		r.record(ctx, scope, "insert", nil, store.Filter{}, details{}, []*models.Event{stored})
	}
	return stored, nil
}

func (r *Recorder) InsertMany(ctx context.Context, events []*models.Event) ([]*models.Event, error) {
	stored, err := r.inner.InsertMany(ctx, events)
	if err != nil {
		return stored, err
	}
	if scope := ScopeFrom(ctx); scope != nil {
		r.record(ctx, scope, "insert_many", nil, store.Filter{}, details{}, stored)
	}
	return stored, nil
}

func (r *Recorder) UpdateOne(ctx context.Context, f store.Filter, u store.Update) (int, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.UpdateOne(ctx, f, u)
	}
	before, err := r.snapshot(ctx, f, 1)
	if err != nil {
		return 0, err
	}
	n, err := r.inner.UpdateOne(ctx, f, u)
	if err != nil {
		return n, err
	}
	after := r.reread(ctx, ids(before))
	r.record(ctx, scope, "update_one", before, f, details{update: &u}, after)
	return n, nil
}

func (r *Recorder) UpdateMany(ctx context.Context, f store.Filter, u store.Update) (int, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.UpdateMany(ctx, f, u)
	}
	before, err := r.snapshot(ctx, f, 0)
	if err != nil {
		return 0, err
	}
	n, err := r.inner.UpdateMany(ctx, f, u)
	if err != nil {
		return n, err
	}
	after := r.reread(ctx, ids(before))
	r.record(ctx, scope, "update_many", before, f, details{update: &u}, after)
	return n, nil
}

func (r *Recorder) ReplaceOne(ctx context.Context, f store.Filter, e *models.Event) error {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.ReplaceOne(ctx, f, e)
	}
	before, err := r.snapshot(ctx, f, 1)
	if err != nil {
		return err
	}
	if err := r.inner.ReplaceOne(ctx, f, e); err != nil {
		return err
	}
	after := r.reread(ctx, ids(before))
	r.record(ctx, scope, "replace_one", before, f, details{replacement: e}, after)
	return nil
}

func (r *Recorder) FindOneAndUpdate(ctx context.Context, f store.Filter, u store.Update) (*models.Event, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.FindOneAndUpdate(ctx, f, u)
	}
	before, err := r.snapshot(ctx, f, 1)
	if err != nil {
		return nil, err
	}
	updated, err := r.inner.FindOneAndUpdate(ctx, f, u)
	if err != nil {
		return nil, err
	}
	r.record(ctx, scope, "find_one_and_update", before, f, details{update: &u}, []*models.Event{updated})
	return updated, nil
}

func (r *Recorder) Upsert(ctx context.Context, f store.Filter, e *models.Event) (bool, string, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.Upsert(ctx, f, e)
	}
	before, err := r.snapshot(ctx, f, 1)
	if err != nil {
		return false, "", err
	}
	created, id, err := r.inner.Upsert(ctx, f, e)
	if err != nil {
		return created, id, err
	}
	if created {
		after := r.reread(ctx, []string{id})
		r.record(ctx, scope, "upsert", before, f, details{}, after)
	}
	return created, id, nil
}

func (r *Recorder) DeleteOne(ctx context.Context, f store.Filter) (int, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.DeleteOne(ctx, f)
	}
	before, err := r.snapshot(ctx, f, 1)
	if err != nil {
		return 0, err
	}
	n, err := r.inner.DeleteOne(ctx, f)
	if err != nil {
		return n, err
	}
	r.record(ctx, scope, "delete_one", before, f, details{}, nil)
	return n, nil
}

func (r *Recorder) DeleteMany(ctx context.Context, f store.Filter) (int, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.DeleteMany(ctx, f)
	}
	before, err := r.snapshot(ctx, f, 0)
	if err != nil {
		return 0, err
	}
	n, err := r.inner.DeleteMany(ctx, f)
	if err != nil {
		return n, err
	}
	r.record(ctx, scope, "delete_many", before, f, details{}, nil)
	return n, nil
}

// BulkWrite decomposes the batch: every sub-operation's before-set is
// captured before the batch executes, and afters come from re-reads plus
// the returned id maps.
func (r *Recorder) BulkWrite(ctx context.Context, ops []store.WriteOp) (*store.BulkResult, error) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return r.inner.BulkWrite(ctx, ops)
	}

	befores := make([][]*models.Event, len(ops))
	for i, op := range ops {
		var f store.Filter
		limit := 0
		switch {
		case op.Update != nil:
			f = op.Update.Filter
			if !op.Update.Many {
				limit = 1
			}
		case op.Delete != nil:
			f = op.Delete.Filter
			if !op.Delete.Many {
				limit = 1
			}
		case op.Upsert != nil:
			f = op.Upsert.Filter
			limit = 1
		default:
			continue
		}
		snap, err := r.snapshot(ctx, f, limit)
		if err != nil {
			return nil, err
		}
		befores[i] = snap
	}

	res, err := r.inner.BulkWrite(ctx, ops)
	if err != nil {
		return res, err
	}

	for i, op := range ops {
		opName := op.Name()
		var f store.Filter
		var det details
		var affected []string

		switch {
		case op.Insert != nil:
			if id, ok := res.InsertedIDs[i]; ok {
				affected = []string{id}
			}
		case op.Update != nil:
			f = op.Update.Filter
			det.update = &op.Update.Update
			affected = ids(befores[i])
		case op.Delete != nil:
			f = op.Delete.Filter
			affected = ids(befores[i])
		case op.Upsert != nil:
			f = op.Upsert.Filter
			if id, ok := res.UpsertedIDs[i]; ok {
				affected = []string{id}
			}
		}
		after := r.reread(ctx, affected)
		r.record(ctx, scope, "bulk:"+opName, befores[i], f, det, after)
	}
	return res, nil
}

// details carries the serialized mutation parameters onto audit entries.
type details struct {
	update      *store.Update
	replacement *models.Event
}

// snapshot reads the documents the filter matches, in store order,
// truncated to limit when limit > 0.
func (r *Recorder) snapshot(ctx context.Context, f store.Filter, limit int) ([]*models.Event, error) {
	matches, err := r.inner.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// reread fetches current images by id. Read failures here degrade the
// audit record, never the mutation.
func (r *Recorder) reread(ctx context.Context, affected []string) []*models.Event {
	if len(affected) == 0 {
		return nil
	}
	after, err := r.inner.Find(ctx, store.ByIDs(affected))
	if err != nil {
		logging.Err(err).Msg("audit after-image read failed")
		return nil
	}
	return after
}

func ids(events []*models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

// record writes one EventHistory row and one AuditEntry per affected
// document. Persistence failures are logged and counted, never surfaced:
// the mutation has already committed.
func (r *Recorder) record(ctx context.Context, scope *Scope, opName string, before []*models.Event, f store.Filter, det details, after []*models.Event) {
	action := actionFrom(ctx)
	if action == "" {
		action = scope.Key + ":" + opName
	}
	meta := requestMetaFrom(ctx)

	beforeByID := make(map[string]*models.Event, len(before))
	for _, e := range before {
		beforeByID[e.ID] = e
	}
	afterByID := make(map[string]*models.Event, len(after))
	for _, e := range after {
		afterByID[e.ID] = e
	}

	seen := make(map[string]bool)
	var affected []string
	for _, e := range before {
		if !seen[e.ID] {
			seen[e.ID] = true
			affected = append(affected, e.ID)
		}
	}
	for _, e := range after {
		if !seen[e.ID] {
			seen[e.ID] = true
			affected = append(affected, e.ID)
		}
	}

	detailsMap := encodeDetails(f, det)

	for _, id := range affected {
		beforeImg := encodeImage(beforeByID[id])
		afterImg := encodeImage(afterByID[id])

		hist := &models.EventHistory{
			EventID:  id,
			Before:   beforeImg,
			After:    afterImg,
			EditedBy: editedBy(scope.Actor),
			Actor:    scope.Actor,
		}
		storedHist, err := r.log.AppendHistory(ctx, hist)
		historyID := ""
		if err != nil {
			metrics.AuditWriteFailures.Inc()
			logging.Err(err).Str("event_id", id).Str("action", action).Msg("audit history write failed")
		} else {
			historyID = storedHist.ID
		}

		entry := &models.AuditEntry{
			EventID:       id,
			Action:        action,
			Actor:         scope.Actor,
			IP:            meta.IP,
			RequestID:     meta.RequestID,
			ChangedFields: diffFields(beforeImg, afterImg),
			Details:       detailsMap,
			HistoryID:     historyID,
		}
		if storedHist != nil {
			entry.Timestamp = storedHist.EditedAt
		}
		if _, err := r.log.AppendEntry(ctx, entry); err != nil {
			metrics.AuditWriteFailures.Inc()
			logging.Err(err).Str("event_id", id).Str("action", action).Msg("audit entry write failed")
		}
	}
}

func editedBy(actor models.AuditActor) string {
	if actor.Username != "" {
		return actor.Username
	}
	return actor.Source
}

func encodeImage(e *models.Event) json.RawMessage {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		logging.Err(err).Str("event_id", e.ID).Msg("audit image encode failed")
		return nil
	}
	return data
}

func encodeDetails(f store.Filter, det details) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	if data, err := json.Marshal(f); err == nil && string(data) != "{}" {
		out["filter"] = data
	}
	if det.update != nil {
		if data, err := json.Marshal(det.update); err == nil {
			out["update"] = data
		}
	}
	if det.replacement != nil {
		if data, err := json.Marshal(det.replacement); err == nil {
			out["replacement"] = data
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// diffFields returns the top-level JSON keys whose values differ between
// the images, sorted for stable output. The last_modified bookkeeping
// stamp changes on every write and is excluded.
func diffFields(before, after json.RawMessage) []string {
	if before == nil || after == nil {
		return nil
	}
	var b, a map[string]json.RawMessage
	if err := json.Unmarshal(before, &b); err != nil {
		return nil
	}
	if err := json.Unmarshal(after, &a); err != nil {
		return nil
	}
	delete(b, "last_modified")
	delete(a, "last_modified")
	changed := make(map[string]bool)
	for k, v := range b {
		if av, ok := a[k]; !ok || string(av) != string(v) {
			changed[k] = true
		}
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			changed[k] = true
		}
	}
	out := make([]string, 0, len(changed))
	for k := range changed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

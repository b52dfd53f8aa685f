// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package merge folds duplicate demonstrations into a single visible
// event. Duplicates appear when overlapping recurring templates expand
// onto the same occurrence or when the same demonstration is submitted
// twice.
package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mkosonen/kulkue/internal/audit"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// Audit actions written for the two sides of a merge.
const (
	actionMergePrimary   = "merge_duplicate_submission"
	actionMergeDuplicate = "merged_into_duplicate_submission"
)

// Merger detects and merges duplicate events, rewriting every foreign
// reference to the surviving primary.
type Merger struct {
	events     store.EventCollection
	submitters *store.SubmitterStore
	queue      *store.QueueStore
	cases      *store.CaseStore
	reminders  *store.ReminderStore
}

// NewMerger wires a merger over the audited event collection and the
// reference-holding collections.
func NewMerger(events store.EventCollection, submitters *store.SubmitterStore, queue *store.QueueStore, cases *store.CaseStore, reminders *store.ReminderStore) *Merger {
	return &Merger{
		events:     events,
		submitters: submitters,
		queue:      queue,
		cases:      cases,
		reminders:  reminders,
	}
}

// Sweep scans the whole collection, groups duplicates and merges each
// group. Group failures are isolated; the first error is returned after
// the sweep completes.
func (m *Merger) Sweep(ctx context.Context) error {
	candidates, err := m.events.Find(ctx, store.Filter{
		Hidden: store.Bool(false),
		Merged: store.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("scan for duplicates: %w", err)
	}

	groups := make(map[string][]*models.Event)
	for _, e := range candidates {
		k := duplicateKey(e)
		groups[k] = append(groups[k], e)
	}

	var firstErr error
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		if err := m.MergeGroup(ctx, group); err != nil {
			logging.Err(err).Int("group_size", len(group)).Msg("duplicate group merge failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// duplicateKey canonicalizes the fields two events must agree on to be
// duplicates.
func duplicateKey(e *models.Event) string {
	orgs := make([]string, 0, len(e.Organizers))
	for _, o := range e.Organizers {
		orgs = append(orgs, strings.TrimSpace(strings.ToLower(o.Name)))
	}
	sort.Strings(orgs)
	return strings.Join([]string{
		strings.TrimSpace(strings.ToLower(e.Title)),
		strings.Join(orgs, ","),
		e.Date,
		e.StartTime,
		e.EndTime,
		strings.TrimSpace(strings.ToLower(e.Address)),
		strings.TrimSpace(strings.ToLower(e.City)),
	}, "|")
}

// MergeGroup collapses one duplicate group onto its primary. The primary
// side lands as a single update carrying every alias and fill for the
// group, so a merge produces one primary audit entry plus one entry per
// duplicate.
func (m *Merger) MergeGroup(ctx context.Context, group []*models.Event) error {
	primary, err := m.electPrimary(ctx, group)
	if err != nil {
		return err
	}
	dups := make([]*models.Event, 0, len(group)-1)
	for _, e := range group {
		if e.ID != primary.ID {
			dups = append(dups, e)
		}
	}
	if len(dups) == 0 {
		return nil
	}

	// Foreign references move first so nothing points at a duplicate once
	// it is hidden.
	for _, dup := range dups {
		if err := m.rewriteRefs(ctx, dup.ID, primary.ID); err != nil {
			return err
		}
	}

	// Earlier duplicates fill against the working image, so a later one
	// only contributes fields still empty. The primary write lands before
	// the duplicates' merged_into so the alias back-references are in
	// place when the store checks symmetry.
	work := primary.Clone()
	var u store.Update
	for _, dup := range dups {
		fillFrom(work, dup, &u)
		u.AddAliases = append(u.AddAliases, dup.ID)
	}
	primaryCtx := audit.WithAction(ctx, actionMergePrimary)
	if _, err := m.events.UpdateOne(primaryCtx, store.ByID(primary.ID), u); err != nil {
		return fmt.Errorf("update merge primary %s: %w", primary.ID, err)
	}

	dupCtx := audit.WithAction(ctx, actionMergeDuplicate)
	for _, dup := range dups {
		if _, err := m.events.UpdateOne(dupCtx, store.ByID(dup.ID), store.Update{
			MergedInto: &primary.ID,
			Hidden:     store.Bool(true),
		}); err != nil {
			return fmt.Errorf("mark duplicate %s merged: %w", dup.ID, err)
		}
		metrics.DuplicatesMerged.Inc()
		logging.Info().Str("primary_id", primary.ID).Str("duplicate_id", dup.ID).
			Msg("merged duplicate demonstration")
	}
	return nil
}

// electPrimary prefers the event an existing submitter record points at,
// so the submitter link survives the merge; otherwise the oldest event.
func (m *Merger) electPrimary(ctx context.Context, group []*models.Event) (*models.Event, error) {
	oldest := group[0]
	for _, e := range group {
		if e.CreatedAt.Before(oldest.CreatedAt) {
			oldest = e
		}
	}
	for _, e := range group {
		referenced, err := m.submitters.HasDemoRef(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("check submitter refs for %s: %w", e.ID, err)
		}
		if referenced {
			return e, nil
		}
	}
	return oldest, nil
}

func (m *Merger) rewriteRefs(ctx context.Context, from, to string) error {
	if _, err := m.submitters.RewriteDemoRefs(ctx, from, to); err != nil {
		return fmt.Errorf("rewrite submitter refs: %w", err)
	}
	if _, err := m.queue.RewriteDemoRefs(ctx, from, to); err != nil {
		return fmt.Errorf("rewrite queue refs: %w", err)
	}
	if _, err := m.cases.RewriteDemoRefs(ctx, from, to); err != nil {
		return fmt.Errorf("rewrite case refs: %w", err)
	}
	if _, err := m.reminders.RewriteDemoRefs(ctx, from, to); err != nil {
		return fmt.Errorf("rewrite reminder refs: %w", err)
	}
	return nil
}

// fillFrom copies the duplicate's set fields onto the working primary
// image wherever it is still empty, recording each copy on u.
func fillFrom(work, dup *models.Event, u *store.Update) {
	if work.Description == "" && dup.Description != "" {
		u.Description = &dup.Description
		work.Description = dup.Description
	}
	if work.StartTime == "" && dup.StartTime != "" {
		u.StartTime = &dup.StartTime
		work.StartTime = dup.StartTime
	}
	if work.EndTime == "" && dup.EndTime != "" {
		u.EndTime = &dup.EndTime
		work.EndTime = dup.EndTime
	}
	if work.Address == "" && dup.Address != "" {
		u.Address = &dup.Address
		work.Address = dup.Address
	}
	if len(work.Route) == 0 && len(dup.Route) > 0 {
		route := append([]models.RoutePoint(nil), dup.Route...)
		u.Route = &route
		work.Route = route
	}
	if len(work.Tags) == 0 && len(dup.Tags) > 0 {
		tags := append([]string(nil), dup.Tags...)
		u.Tags = &tags
		work.Tags = tags
	}
	if len(work.Organizers) == 0 && len(dup.Organizers) > 0 {
		orgs := append([]models.Organizer(nil), dup.Organizers...)
		u.Organizers = &orgs
		work.Organizers = orgs
	}
	if work.CoverImage == nil && dup.CoverImage != nil {
		img := *dup.CoverImage
		u.CoverImage = &img
		work.CoverImage = &img
	}
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package recurrence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/metrics"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// defaultWorkers bounds the template worker pool.
const defaultWorkers = 10

// Horizon is how far ahead of now children are materialised.
const horizonYears = 1

// DuplicateSweeper folds near-duplicate events after expansion.
// Implemented by the merge package.
type DuplicateSweeper interface {
	Sweep(ctx context.Context) error
}

// Expander keeps child events in sync with their recurring templates.
//
// For each template the set of children equals the set of scheduled
// occurrences up to one year out, except frozen children are left alone,
// on-schedule children get their mutable fields refreshed, and
// off-schedule children are deleted. Re-running with no schedule changes
// produces no mutations.
type Expander struct {
	events    store.EventCollection
	templates *store.TemplateStore
	clock     dateutil.Clock
	sweeper   DuplicateSweeper
	workers   int
}

// NewExpander wires an expander. sweeper may be nil to skip the
// post-expansion duplicate sweep (tests).
func NewExpander(events store.EventCollection, templates *store.TemplateStore, clock dateutil.Clock, sweeper DuplicateSweeper) *Expander {
	return &Expander{
		events:    events,
		templates: templates,
		clock:     clock,
		sweeper:   sweeper,
		workers:   defaultWorkers,
	}
}

// Run expands every template. Template failures are isolated: the run
// continues and the first error is returned at the end. Templates are
// processed in parallel; per-template work is serial.
func (x *Expander) Run(ctx context.Context) error {
	templates, err := x.templates.List(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	sem := make(chan struct{}, x.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, t := range templates {
		if !t.RepeatSchedule.Repeats() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(t *models.RecurringTemplate) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := x.ExpandTemplate(ctx, t); err != nil {
				logging.Err(err).Str("template_id", t.ID).Msg("template expansion failed")
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()

	if x.sweeper != nil {
		if err := x.sweeper.Sweep(ctx); err != nil {
			logging.Err(err).Msg("post-expansion duplicate sweep failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ExpandTemplate reconciles one template's children with its schedule.
func (x *Expander) ExpandTemplate(ctx context.Context, t *models.RecurringTemplate) error {
	anchor, err := dateutil.ParseISO(t.Date)
	if err != nil {
		return fmt.Errorf("template %s anchor: %w", t.ID, err)
	}

	var after dateutil.Date
	if t.CreatedUntil != "" {
		after, err = dateutil.ParseISO(t.CreatedUntil)
		if err != nil {
			return fmt.Errorf("template %s created_until: %w", t.ID, err)
		}
	}
	horizon := dateutil.DateOf(x.clock.Now().UTC()).AddYears(horizonYears)

	wanted := make(map[string]bool)
	for _, d := range Occurrences(t.RepeatSchedule, anchor, after, horizon) {
		wanted[d.String()] = true
	}

	children, err := x.events.Find(ctx, store.Filter{Parent: t.ID})
	if err != nil {
		return fmt.Errorf("template %s children: %w", t.ID, err)
	}

	for _, child := range children {
		if t.Frozen(child.ID) {
			delete(wanted, child.Date)
			continue
		}
		if wanted[child.Date] {
			delete(wanted, child.Date)
			if err := x.refreshChild(ctx, t, child); err != nil {
				return err
			}
			continue
		}
		// Children predating created_until were simply not part of this
		// window; keep and refresh the ones still on schedule, delete the
		// rest.
		if isScheduled(t, anchor, child.Date) {
			if err := x.refreshChild(ctx, t, child); err != nil {
				return err
			}
			continue
		}
		if _, err := x.events.DeleteOne(ctx, store.ByID(child.ID)); err != nil {
			return fmt.Errorf("delete off-schedule child %s: %w", child.ID, err)
		}
		logging.Info().Str("template_id", t.ID).Str("child_id", child.ID).
			Str("date", child.Date).Msg("deleted off-schedule child")
	}

	for date := range wanted {
		created, _, err := x.events.Upsert(ctx,
			store.Filter{Parent: t.ID, Date: date},
			x.childFor(t, date))
		if err != nil {
			return fmt.Errorf("create child on %s: %w", date, err)
		}
		if created {
			metrics.ChildEventsCreated.Inc()
		}
	}

	if err := x.templates.Mutate(ctx, t.ID, func(cur *models.RecurringTemplate) error {
		if cur.CreatedUntil == "" || horizon.String() > cur.CreatedUntil {
			cur.CreatedUntil = horizon.String()
		}
		city, address := cur.City, cur.Address
		cur.AppliedCity = &city
		cur.AppliedAddress = &address
		return nil
	}); err != nil {
		return fmt.Errorf("advance created_until: %w", err)
	}

	metrics.TemplatesExpanded.Inc()
	return nil
}

// isScheduled reports whether a child date still lies on the template's
// schedule, ignoring the created_until lower bound. The one-day window
// makes this a direct membership check regardless of how far the date is
// from the anchor.
func isScheduled(t *models.RecurringTemplate, anchor dateutil.Date, childDate string) bool {
	d, err := dateutil.ParseISO(childDate)
	if err != nil {
		return false
	}
	occ := Occurrences(t.RepeatSchedule, anchor, d.AddDays(-1), d)
	return len(occ) == 1 && occ[0].Equal(d)
}

// refreshChild pushes the template's mutable fields onto an on-schedule
// child. Route, date and parent linkage stay authoritative on the child.
// Only changed fields are written, keeping re-runs mutation-free.
func (x *Expander) refreshChild(ctx context.Context, t *models.RecurringTemplate, child *models.Event) error {
	var u store.Update
	dirty := false

	if child.Title != t.Title {
		u.Title = &t.Title
		dirty = true
	}
	if child.Description != t.Description {
		u.Description = &t.Description
		dirty = true
	}
	if !equalStrings(child.Tags, t.Tags) {
		tags := append([]string(nil), t.Tags...)
		u.Tags = &tags
		dirty = true
	}
	if !equalOrganizers(child.Organizers, t.Organizers) {
		orgs := append([]models.Organizer(nil), t.Organizers...)
		u.Organizers = &orgs
		dirty = true
	}
	// Location follows the template only while the child still carries
	// the previously applied values; a hand-relocated child keeps its own.
	if child.City != t.City && (t.AppliedCity == nil || child.City == *t.AppliedCity) {
		u.City = &t.City
		dirty = true
	}
	if child.Address != t.Address && (t.AppliedAddress == nil || child.Address == *t.AppliedAddress) {
		u.Address = &t.Address
		dirty = true
	}
	if !dirty {
		return nil
	}
	if _, err := x.events.UpdateOne(ctx, store.ByID(child.ID), u); err != nil {
		return fmt.Errorf("refresh child %s: %w", child.ID, err)
	}
	return nil
}

// childFor builds a fresh child event for one occurrence date.
func (x *Expander) childFor(t *models.RecurringTemplate, date string) *models.Event {
	child := t.Event.Clone()
	child.ID = ""
	child.Slug = ""
	child.RunningNumber = 0
	child.Parent = t.ID
	child.Date = date
	child.Aliases = nil
	child.MergedInto = ""
	child.AdminNotificationLastSentAt = nil
	child.CreatedAt = time.Time{}
	child.LastModified = time.Time{}
	child.InPast = false
	return child
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalOrganizers(a, b []models.Organizer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

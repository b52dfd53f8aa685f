// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package jobs

import (
	"context"
	"fmt"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// OrganizerRefresher propagates organization profile edits onto the
// organizer entries embedded in upcoming events. Events reference
// organizations weakly, so edits to the organization document do not show
// on events until this job copies them over.
type OrganizerRefresher struct {
	events store.EventCollection
	orgs   *store.OrganizationStore
	clock  dateutil.Clock
}

// NewOrganizerRefresher wires the refresher.
func NewOrganizerRefresher(events store.EventCollection, orgs *store.OrganizationStore, clock dateutil.Clock) *OrganizerRefresher {
	return &OrganizerRefresher{events: events, orgs: orgs, clock: clock}
}

// Run refreshes embedded organizers on every future event. Only events
// whose embedded copy drifted from the organization document are written.
func (r *OrganizerRefresher) Run(ctx context.Context) error {
	orgs, err := r.orgs.List(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}
	byID := make(map[string]*models.Organization, len(orgs))
	for _, o := range orgs {
		byID[o.ID] = o
	}
	if len(byID) == 0 {
		return nil
	}

	today := dateutil.DateOf(r.clock.Now().UTC()).String()
	upcoming, err := r.events.Find(ctx, store.Filter{DateGTE: today})
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}

	for _, e := range upcoming {
		refreshed, dirty := refreshOrganizers(e.Organizers, byID)
		if !dirty {
			continue
		}
		if _, err := r.events.UpdateOne(ctx, store.ByID(e.ID), store.Update{
			Organizers: &refreshed,
		}); err != nil {
			return fmt.Errorf("refresh organizers on %s: %w", e.ID, err)
		}
	}
	return nil
}

func refreshOrganizers(current []models.Organizer, orgs map[string]*models.Organization) ([]models.Organizer, bool) {
	out := append([]models.Organizer(nil), current...)
	dirty := false
	for i, o := range out {
		if o.OrganizationID == "" {
			continue
		}
		org, ok := orgs[o.OrganizationID]
		if !ok {
			continue
		}
		next := models.Organizer{
			Name:           org.Name,
			Email:          org.Email,
			Website:        org.Website,
			OrganizationID: org.ID,
		}
		if next != o {
			out[i] = next
			dirty = true
		}
	}
	return out, dirty
}

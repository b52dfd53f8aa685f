// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

func TestOrganizerRefreshPropagatesOrgEdits(t *testing.T) {
	s, clock := openJobStore(t)
	ctx := context.Background()

	org, err := s.Organizations().Insert(ctx, &models.Organization{
		Name:  "Maan ystävät",
		Email: "info@example.org",
	})
	require.NoError(t, err)

	linked := insertWithFlags(t, s, "Ilmastomarssi", func(e *models.Event) {
		e.Organizers = []models.Organizer{{
			Name:           org.Name,
			Email:          org.Email,
			OrganizationID: org.ID,
		}}
	})
	unlinked := insertWithFlags(t, s, "Lakkovahti", func(e *models.Event) {
		e.Organizers = []models.Organizer{{Name: "Vapaa ryhmä"}}
	})

	err = s.Organizations().Mutate(ctx, org.ID, func(o *models.Organization) error {
		o.Name = "Maan ystävät ry"
		o.Website = "https://example.org"
		return nil
	})
	require.NoError(t, err)

	refresher := NewOrganizerRefresher(s.Events(), s.Organizations(), clock)
	require.NoError(t, refresher.Run(ctx))

	got, err := s.Events().FindOne(ctx, store.ByID(linked.ID))
	require.NoError(t, err)
	require.Len(t, got.Organizers, 1)
	assert.Equal(t, "Maan ystävät ry", got.Organizers[0].Name)
	assert.Equal(t, "https://example.org", got.Organizers[0].Website)
	assert.Equal(t, org.ID, got.Organizers[0].OrganizationID)

	// Organizers without an organization link are left alone.
	got, err = s.Events().FindOne(ctx, store.ByID(unlinked.ID))
	require.NoError(t, err)
	assert.Equal(t, "Vapaa ryhmä", got.Organizers[0].Name)
}

func TestOrganizerRefreshSkipsCleanEvents(t *testing.T) {
	s, clock := openJobStore(t)
	ctx := context.Background()

	org, err := s.Organizations().Insert(ctx, &models.Organization{
		Name:  "Maan ystävät",
		Email: "info@example.org",
	})
	require.NoError(t, err)

	e := insertWithFlags(t, s, "Ilmastomarssi", func(ev *models.Event) {
		ev.Organizers = []models.Organizer{{
			Name:           org.Name,
			Email:          org.Email,
			OrganizationID: org.ID,
		}}
	})

	refresher := NewOrganizerRefresher(s.Events(), s.Organizations(), clock)
	require.NoError(t, refresher.Run(ctx))

	// No drift, no write.
	got, err := s.Events().FindOne(ctx, store.ByID(e.ID))
	require.NoError(t, err)
	assert.Equal(t, e.LastModified, got.LastModified)
}

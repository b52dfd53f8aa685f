// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

func TestPastHiderMarksGoneByEvents(t *testing.T) {
	s, clock := openJobStore(t)
	ctx := context.Background()

	past := insertWithFlags(t, s, "Mennyt", func(e *models.Event) { e.Date = "2026-07-15" })
	today := insertWithFlags(t, s, "Tänään", func(e *models.Event) { e.Date = "2026-08-01" })
	future := insertWithFlags(t, s, "Tuleva", func(e *models.Event) { e.Date = "2026-09-01" })

	hider := NewPastHider(s.Events(), clock)
	require.NoError(t, hider.Run(ctx))

	got, err := s.Events().FindOne(ctx, store.ByID(past.ID))
	require.NoError(t, err)
	assert.True(t, got.InPast)

	// Today's events still count as upcoming.
	got, err = s.Events().FindOne(ctx, store.ByID(today.ID))
	require.NoError(t, err)
	assert.False(t, got.InPast)

	got, err = s.Events().FindOne(ctx, store.ByID(future.ID))
	require.NoError(t, err)
	assert.False(t, got.InPast)
}

func TestPastHiderIsIdempotent(t *testing.T) {
	s, clock := openJobStore(t)
	ctx := context.Background()

	e := insertWithFlags(t, s, "Mennyt", func(ev *models.Event) { ev.Date = "2026-07-15" })

	hider := NewPastHider(s.Events(), clock)
	require.NoError(t, hider.Run(ctx))

	first, err := s.Events().FindOne(ctx, store.ByID(e.ID))
	require.NoError(t, err)
	require.True(t, first.InPast)

	// A later run matches nothing, so last_modified stays put.
	clock.t = clock.t.Add(time.Hour)
	require.NoError(t, hider.Run(ctx))
	second, err := s.Events().FindOne(ctx, store.ByID(e.ID))
	require.NoError(t, err)
	assert.Equal(t, first.LastModified, second.LastModified)
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package jobs

import (
	"context"
	"fmt"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/store"
)

// PastHider stamps in_past on events whose date has gone by, dropping
// them from the public listing.
type PastHider struct {
	events store.EventCollection
	clock  dateutil.Clock
}

// NewPastHider wires the past-event hider.
func NewPastHider(events store.EventCollection, clock dateutil.Clock) *PastHider {
	return &PastHider{events: events, clock: clock}
}

// Run marks every not-yet-flagged past event. Idempotent: a second run on
// the same day writes nothing.
func (p *PastHider) Run(ctx context.Context) error {
	today := dateutil.DateOf(p.clock.Now().UTC()).String()
	n, err := p.events.UpdateMany(ctx, store.Filter{
		DateLT: today,
		InPast: store.Bool(false),
	}, store.Update{
		InPast: store.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("hide past events: %w", err)
	}
	if n > 0 {
		logging.Info().Int("count", n).Msg("marked past events")
	}
	return nil
}

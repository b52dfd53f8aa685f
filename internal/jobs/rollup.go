// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package jobs

import (
	"context"
	"fmt"

	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/store"
)

// AnalyticsRollup folds raw view hits into per-minute buckets so the
// stats endpoint serves pre-aggregated data.
type AnalyticsRollup struct {
	stats *store.StatsStore
}

// NewAnalyticsRollup wires the roll-up.
func NewAnalyticsRollup(stats *store.StatsStore) *AnalyticsRollup {
	return &AnalyticsRollup{stats: stats}
}

// Run performs one roll-up pass.
func (a *AnalyticsRollup) Run(ctx context.Context) error {
	folded, err := a.stats.RollupMinutes(ctx)
	if err != nil {
		return fmt.Errorf("roll up view hits: %w", err)
	}
	if folded > 0 {
		logging.Debug().Int("hits", folded).Msg("rolled up view hits")
	}
	return nil
}

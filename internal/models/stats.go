// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package models

import "time"

// MinuteBucket is one pre-aggregated view-count bucket, keyed by the minute
// it covers. The analytics roll-up job folds raw hits into these.
type MinuteBucket struct {
	DemoID string    `json:"demo_id"`
	Minute time.Time `json:"minute"`
	Views  int64     `json:"views"`
}

// DemoStats is the per-event stats document served by the public API.
type DemoStats struct {
	DemoID  string         `json:"demo_id"`
	Likes   int64          `json:"likes"`
	Views   int64          `json:"views"`
	Buckets []MinuteBucket `json:"buckets,omitempty"`
}

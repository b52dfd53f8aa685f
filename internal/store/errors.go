// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import "errors"

// Sentinel errors returned by store operations.
var (
	// ErrNotFound indicates no document matched the filter or id.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateSlug indicates the slug uniqueness retry loop was
	// exhausted. Practically unreachable; it would take thousands of
	// identical titles.
	ErrDuplicateSlug = errors.New("store: duplicate slug")

	// ErrDuplicateRunningNumber indicates a running-number index collision,
	// which means the sequence allocator is corrupt.
	ErrDuplicateRunningNumber = errors.New("store: duplicate running number")

	// ErrInvalidDisposition indicates a write would leave an event both
	// approved and rejected. The store refuses such writes.
	ErrInvalidDisposition = errors.New("store: approved and rejected are mutually exclusive")

	// ErrAliasAsymmetry indicates a write would break the aliases /
	// merged_into symmetry.
	ErrAliasAsymmetry = errors.New("store: orphaned alias reference")

	// ErrNoPendingJobs indicates the notification queue had no claimable job.
	ErrNoPendingJobs = errors.New("store: no pending jobs")
)

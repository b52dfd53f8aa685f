// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// autoCloseAuthor is recorded on case history entries the closer writes.
const autoCloseAuthor = "auto-close"

// AutoCloser resolves open moderation cases whose linked entity reached a
// terminal state.
type AutoCloser struct {
	events store.EventCollection
	cases  *store.CaseStore
	orgs   *store.OrganizationStore
}

// NewAutoCloser wires the case closer.
func NewAutoCloser(events store.EventCollection, cases *store.CaseStore, orgs *store.OrganizationStore) *AutoCloser {
	return &AutoCloser{events: events, cases: cases, orgs: orgs}
}

// Run walks open cases and closes each one whose terminal condition
// holds. Per-case failures are logged and skipped; the first error is
// returned after the walk.
func (a *AutoCloser) Run(ctx context.Context) error {
	open, err := a.cases.Open(ctx)
	if err != nil {
		return fmt.Errorf("list open cases: %w", err)
	}

	var firstErr error
	for _, c := range open {
		reason, done, err := a.resolution(ctx, c)
		if err != nil {
			logging.Err(err).Str("case_id", c.ID).Msg("case resolution check failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !done {
			continue
		}
		if err := a.cases.Close(ctx, c.ID, reason, autoCloseAuthor); err != nil {
			logging.Err(err).Str("case_id", c.ID).Msg("closing case failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logging.Info().Str("case_id", c.ID).Str("reason", reason).Msg("case auto-closed")
	}
	return firstErr
}

// resolution inspects the linked entity and returns the close reason when
// a terminal condition holds.
func (a *AutoCloser) resolution(ctx context.Context, c *models.Case) (string, bool, error) {
	if c.CaseType == models.CaseTypeOrgEdit {
		if c.OrganizationID == "" {
			return "", false, nil
		}
		org, err := a.orgs.Get(ctx, c.OrganizationID)
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		if !org.UpdatedAt.Before(c.CreatedAt) {
			return models.CloseReasonChangesSaved, true, nil
		}
		return "", false, nil
	}

	if c.DemoID == "" {
		return "", false, nil
	}
	e, err := a.events.FindOne(ctx, store.ByID(c.DemoID))
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	switch {
	case e.Cancelled:
		return models.CloseReasonCancelled, true, nil
	case e.Rejected:
		return models.CloseReasonRejected, true, nil
	case e.Approved:
		return models.CloseReasonAccepted, true, nil
	}
	return "", false, nil
}

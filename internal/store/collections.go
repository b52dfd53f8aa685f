// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/models"
)

// SubmitterStore holds submitter records (who filed which demonstration).
type SubmitterStore struct {
	db    *badger.DB
	clock Clock
}

func submitterKey(id string) []byte { return []byte(prefixSubmitter + id) }

func (s *SubmitterStore) Insert(ctx context.Context, sub *models.Submitter) (*models.Submitter, error) {
	stored := *sub
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock.Now().UTC()
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, submitterKey(stored.ID), &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ByDemo returns every submitter record referencing the event.
func (s *SubmitterStore) ByDemo(ctx context.Context, demoID string) ([]*models.Submitter, error) {
	var out []*models.Submitter
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixSubmitter, func(sub *models.Submitter) bool {
			if sub.DemonstrationID == demoID {
				out = append(out, sub)
			}
			return true
		})
	})
	return out, err
}

// HasDemoRef reports whether any submitter references the event. The
// duplicate merger uses this when electing the merge primary.
func (s *SubmitterStore) HasDemoRef(ctx context.Context, demoID string) (bool, error) {
	subs, err := s.ByDemo(ctx, demoID)
	return len(subs) > 0, err
}

// RewriteDemoRefs repoints submitter records from one event to another.
func (s *SubmitterStore) RewriteDemoRefs(ctx context.Context, fromID, toID string) (int, error) {
	var rewritten int
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		rewritten = 0
		var hits []*models.Submitter
		if err := scanDocs(txn, prefixSubmitter, func(sub *models.Submitter) bool {
			if sub.DemonstrationID == fromID {
				hits = append(hits, sub)
			}
			return true
		}); err != nil {
			return err
		}
		for _, sub := range hits {
			sub.DemonstrationID = toID
			if err := putDoc(txn, submitterKey(sub.ID), sub); err != nil {
				return err
			}
			rewritten++
		}
		return nil
	})
	return rewritten, err
}

// CaseStore holds moderation cases.
type CaseStore struct {
	db    *badger.DB
	clock Clock
}

func caseKey(id string) []byte { return []byte(prefixCase + id) }

func (s *CaseStore) Insert(ctx context.Context, c *models.Case) (*models.Case, error) {
	stored := c.CloneCase()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := s.clock.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, caseKey(stored.ID), stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *CaseStore) Get(ctx context.Context, id string) (*models.Case, error) {
	var c models.Case
	err := s.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, caseKey(id), &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Open returns every unresolved case, oldest first.
func (s *CaseStore) Open(ctx context.Context) ([]*models.Case, error) {
	var out []*models.Case
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixCase, func(c *models.Case) bool {
			if !c.Meta.Closed {
				out = append(out, c)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close resolves a case with the given reason and appends a history note.
// Closing an already closed case is a no-op.
func (s *CaseStore) Close(ctx context.Context, id, reason, author string) error {
	return s.Mutate(ctx, id, func(c *models.Case) error {
		if c.Meta.Closed {
			return nil
		}
		c.Meta.Closed = true
		c.Meta.ClosedReason = reason
		c.History = append(c.History, models.CaseHistoryEntry{
			Message:   reason,
			Author:    author,
			Timestamp: s.clock.Now().UTC(),
		})
		return nil
	})
}

// Mutate applies fn to the case inside one transaction and bumps updated_at.
func (s *CaseStore) Mutate(ctx context.Context, id string, fn func(*models.Case) error) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		var c models.Case
		if err := getDoc(txn, caseKey(id), &c); err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		c.UpdatedAt = s.clock.Now().UTC()
		return putDoc(txn, caseKey(id), &c)
	})
}

// RewriteDemoRefs repoints cases from one event to another.
func (s *CaseStore) RewriteDemoRefs(ctx context.Context, fromID, toID string) (int, error) {
	var rewritten int
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		rewritten = 0
		var hits []*models.Case
		if err := scanDocs(txn, prefixCase, func(c *models.Case) bool {
			if c.DemoID == fromID {
				hits = append(hits, c)
			}
			return true
		}); err != nil {
			return err
		}
		for _, c := range hits {
			c.DemoID = toID
			c.UpdatedAt = s.clock.Now().UTC()
			if err := putDoc(txn, caseKey(c.ID), c); err != nil {
				return err
			}
			rewritten++
		}
		return nil
	})
	return rewritten, err
}

// ReminderStore holds participant reminder subscriptions.
type ReminderStore struct {
	db    *badger.DB
	clock Clock
}

func reminderKey(id string) []byte { return []byte(prefixReminder + id) }

func (s *ReminderStore) Insert(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	stored := *r
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock.Now().UTC()
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, reminderKey(stored.ID), &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Due returns confirmed, uncancelled, unsent reminders for the given
// event ids.
func (s *ReminderStore) Due(ctx context.Context, demoIDs []string) ([]*models.Reminder, error) {
	want := make(map[string]bool, len(demoIDs))
	for _, id := range demoIDs {
		want[id] = true
	}
	var out []*models.Reminder
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixReminder, func(r *models.Reminder) bool {
			if want[r.DemonstrationID] && r.Confirmed && r.SentAt == nil &&
				(r.Cancelled == nil || !*r.Cancelled) {
				out = append(out, r)
			}
			return true
		})
	})
	return out, err
}

// MarkSent stamps sent_at on a reminder.
func (s *ReminderStore) MarkSent(ctx context.Context, id string) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		var r models.Reminder
		if err := getDoc(txn, reminderKey(id), &r); err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		r.SentAt = &now
		return putDoc(txn, reminderKey(id), &r)
	})
}

// RewriteDemoRefs repoints reminders from one event to another.
func (s *ReminderStore) RewriteDemoRefs(ctx context.Context, fromID, toID string) (int, error) {
	var rewritten int
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		rewritten = 0
		var hits []*models.Reminder
		if err := scanDocs(txn, prefixReminder, func(r *models.Reminder) bool {
			if r.DemonstrationID == fromID {
				hits = append(hits, r)
			}
			return true
		}); err != nil {
			return err
		}
		for _, r := range hits {
			r.DemonstrationID = toID
			if err := putDoc(txn, reminderKey(r.ID), r); err != nil {
				return err
			}
			rewritten++
		}
		return nil
	})
	return rewritten, err
}

// OrganizationStore holds registered organizations.
type OrganizationStore struct {
	db    *badger.DB
	clock Clock
}

func orgKey(id string) []byte { return []byte(prefixOrg + id) }

func (s *OrganizationStore) Insert(ctx context.Context, o *models.Organization) (*models.Organization, error) {
	stored := *o
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := s.clock.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, orgKey(stored.ID), &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *OrganizationStore) Get(ctx context.Context, id string) (*models.Organization, error) {
	var o models.Organization
	err := s.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, orgKey(id), &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	var out []*models.Organization
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixOrg, func(o *models.Organization) bool {
			out = append(out, o)
			return true
		})
	})
	return out, err
}

// Mutate applies fn to the organization inside one transaction.
func (s *OrganizationStore) Mutate(ctx context.Context, id string, fn func(*models.Organization) error) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		var o models.Organization
		if err := getDoc(txn, orgKey(id), &o); err != nil {
			return err
		}
		if err := fn(&o); err != nil {
			return err
		}
		o.UpdatedAt = s.clock.Now().UTC()
		return putDoc(txn, orgKey(id), &o)
	})
}

// MembershipStore links users to organizations.
type MembershipStore struct {
	db    *badger.DB
	clock Clock
}

func membershipKey(id string) []byte { return []byte(prefixMembership + id) }

func (s *MembershipStore) Insert(ctx context.Context, m *models.Membership) (*models.Membership, error) {
	stored := *m
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock.Now().UTC()
	}
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, membershipKey(stored.ID), &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ByOrganization returns every membership of the organization.
func (s *MembershipStore) ByOrganization(ctx context.Context, orgID string) ([]*models.Membership, error) {
	var out []*models.Membership
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixMembership, func(m *models.Membership) bool {
			if m.OrganizationID == orgID {
				out = append(out, m)
			}
			return true
		})
	})
	return out, err
}

// SettingsStore holds per-user moderator notification preferences.
type SettingsStore struct {
	db *badger.DB
}

func settingsKey(userID string) []byte { return []byte(prefixSettings + userID) }

func (s *SettingsStore) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	var u models.UserSettings
	err := s.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, settingsKey(userID), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SettingsStore) Put(ctx context.Context, u *models.UserSettings) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		return putDoc(txn, settingsKey(u.UserID), u)
	})
}

// List returns every user's settings; the reminder sweep resolves
// moderator recipients from these.
func (s *SettingsStore) List(ctx context.Context) ([]*models.UserSettings, error) {
	var out []*models.UserSettings
	err := s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixSettings, func(u *models.UserSettings) bool {
			out = append(out, u)
			return true
		})
	})
	return out, err
}

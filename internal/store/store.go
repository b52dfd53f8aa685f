// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package store implements the durable event store on BadgerDB.
//
// Every collection lives under its own key prefix in one Badger instance.
// Documents are JSON; secondary indexes (slug, running number, schedule
// slot) are maintained inside the same transaction as the document write,
// so uniqueness holds under concurrent writers.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mkosonen/kulkue/internal/logging"
)

// Key prefixes per collection. The names mirror the store collections:
// demonstrations, recu_demos, submitters, cases, demo_reminders,
// demo_notifications_queue, demo_edit_history, demo_audit_logs,
// organizations, memberships, media, user_settings and the stats buckets.
const (
	prefixDemo       = "demo:"
	prefixDemoSlug   = "demo_slug:"
	prefixDemoRN     = "demo_rn:"
	prefixDemoParent = "demo_parent:"

	prefixTemplate = "recu:"

	prefixSubmitter = "subm:"
	prefixCase      = "case:"
	prefixReminder  = "remi:"
	prefixQueue     = "queue:"

	prefixHistory  = "hist:"
	prefixAuditLog = "alog:"

	prefixOrg        = "org:"
	prefixMembership = "memb:"
	prefixMedia      = "media:"
	prefixSettings   = "uset:"

	prefixLikes      = "stat_like:"
	prefixViewHit    = "stat_hit:"
	prefixViewBucket = "stat_min:"

	runningNumberSequence = "seq:running_number"
)

// txnRetries bounds optimistic-transaction retry loops. Badger aborts a
// transaction with ErrConflict when a concurrently committed write touched
// the same keys; retrying re-reads fresh state.
const txnRetries = 16

// Store owns the Badger instance and hands out collection accessors.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	events *badgerEvents
}

// Options configures Open.
type Options struct {
	// Path is the Badger data directory. Empty selects an in-memory
	// instance (tests).
	Path string

	// Clock supplies write timestamps. Nil selects the system clock.
	Clock Clock
}

// Clock matches dateutil.Clock; redeclared to keep the store importable
// without the date helpers.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Open opens (or creates) the store at the given path.
func Open(opts Options) (*Store, error) {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}

	var badgerOpts badger.Options
	if opts.Path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	// Bandwidth 64: running numbers are allocated in blocks, so restarts
	// may skip numbers but never reuse them.
	seq, err := db.GetSequence([]byte(runningNumberSequence), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open running-number sequence: %w", err)
	}

	s := &Store{db: db, seq: seq}
	s.events = &badgerEvents{db: db, seq: seq, clock: clock}
	return s, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		logging.Err(err).Msg("releasing running-number sequence")
	}
	return s.db.Close()
}

// Events returns the raw (unaudited) event collection. Production code
// wraps it in the audit recorder; only bootstrap paths use it directly.
func (s *Store) Events() EventCollection { return s.events }

// Templates returns the recurring-template collection.
func (s *Store) Templates() *TemplateStore { return &TemplateStore{db: s.db, clock: s.events.clock} }

// Submitters returns the submitter-record collection.
func (s *Store) Submitters() *SubmitterStore { return &SubmitterStore{db: s.db, clock: s.events.clock} }

// Cases returns the moderation-case collection.
func (s *Store) Cases() *CaseStore { return &CaseStore{db: s.db, clock: s.events.clock} }

// Reminders returns the participant-reminder collection.
func (s *Store) Reminders() *ReminderStore { return &ReminderStore{db: s.db, clock: s.events.clock} }

// Queue returns the durable notification job queue.
func (s *Store) Queue() *QueueStore { return &QueueStore{db: s.db, clock: s.events.clock} }

// Organizations returns the organization collection.
func (s *Store) Organizations() *OrganizationStore {
	return &OrganizationStore{db: s.db, clock: s.events.clock}
}

// Memberships returns the membership collection.
func (s *Store) Memberships() *MembershipStore {
	return &MembershipStore{db: s.db, clock: s.events.clock}
}

// Settings returns the per-user settings collection.
func (s *Store) Settings() *SettingsStore { return &SettingsStore{db: s.db} }

// Audit returns the append-only audit log and edit history.
func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.db, clock: s.events.clock} }

// Stats returns the like counters and minute-bucket views.
func (s *Store) Stats() *StatsStore { return &StatsStore{db: s.db, clock: s.events.clock} }

// RunGC triggers one Badger value-log garbage collection cycle. Invoked
// periodically by the data-layer supervisor service.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// isConflict reports whether an error is a Badger optimistic-transaction
// conflict worth retrying.
func isConflict(err error) bool {
	return errors.Is(err, badger.ErrConflict)
}

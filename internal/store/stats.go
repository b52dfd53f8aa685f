// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/models"
)

// StatsStore holds like counters, raw view hits and the pre-aggregated
// minute buckets the analytics roll-up produces.
type StatsStore struct {
	db    *badger.DB
	clock Clock
}

func likeKey(demoID string) []byte { return []byte(prefixLikes + demoID) }

func hitKey(demoID string, ts time.Time, nonce string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixViewHit, demoID, ts.UnixNano(), nonce))
}

func bucketKey(demoID string, minute time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixViewBucket, demoID, minute.UnixNano()))
}

func (s *StatsStore) addLikes(demoID string, delta int64) (int64, error) {
	var total int64
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		total = 0
		item, err := txn.Get(likeKey(demoID))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				n, parseErr := strconv.ParseInt(string(val), 10, 64)
				total = n
				return parseErr
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		total += delta
		if total < 0 {
			total = 0
		}
		return txn.Set(likeKey(demoID), []byte(strconv.FormatInt(total, 10)))
	})
	return total, err
}

// Like increments the like counter and returns the new total.
func (s *StatsStore) Like(ctx context.Context, demoID string) (int64, error) {
	return s.addLikes(demoID, 1)
}

// Unlike decrements the like counter, floored at zero.
func (s *StatsStore) Unlike(ctx context.Context, demoID string) (int64, error) {
	return s.addLikes(demoID, -1)
}

// Likes returns the current like total.
func (s *StatsStore) Likes(ctx context.Context, demoID string) (int64, error) {
	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(likeKey(demoID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, parseErr := strconv.ParseInt(string(val), 10, 64)
			total = n
			return parseErr
		})
	})
	return total, err
}

// RecordView appends one raw view hit. Hits are cheap single keys; the
// roll-up job folds them into minute buckets.
func (s *StatsStore) RecordView(ctx context.Context, demoID string) error {
	now := s.clock.Now().UTC()
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		return txn.Set(hitKey(demoID, now, uuid.New().String()), []byte("1"))
	})
}

// RollupMinutes folds raw hits older than the current minute into minute
// buckets and deletes the folded hits. Returns the number of hits folded.
func (s *StatsStore) RollupMinutes(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().UTC().Truncate(time.Minute)
	var folded int
	err := updateWithRetry(s.db, func(txn *badger.Txn) error {
		folded = 0

		type slot struct {
			demoID string
			minute time.Time
		}
		counts := make(map[slot]int64)
		var spent [][]byte

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(prefixViewHit)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			demoID, ts, ok := parseHitKey(string(key))
			if !ok {
				continue
			}
			if !ts.Before(cutoff) {
				continue
			}
			counts[slot{demoID, ts.Truncate(time.Minute)}]++
			spent = append(spent, key)
		}
		it.Close()

		for sl, n := range counts {
			key := bucketKey(sl.demoID, sl.minute)
			bucket := models.MinuteBucket{DemoID: sl.demoID, Minute: sl.minute}
			if err := getDoc(txn, key, &bucket); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			bucket.Views += n
			if err := putDoc(txn, key, &bucket); err != nil {
				return err
			}
		}
		for _, key := range spent {
			if err := txn.Delete(key); err != nil {
				return err
			}
			folded++
		}
		return nil
	})
	return folded, err
}

// parseHitKey splits "stat_hit:<demoID>:<nanos>:<nonce>". Demo ids are
// UUIDs, so the id itself never contains a colon followed by 20 digits.
func parseHitKey(key string) (string, time.Time, bool) {
	rest := key[len(prefixViewHit):]
	// demoID:nanos:nonce, so split from the right.
	last := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			last = i
			break
		}
	}
	if last < 0 {
		return "", time.Time{}, false
	}
	rest = rest[:last]
	mid := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			mid = i
			break
		}
	}
	if mid < 0 {
		return "", time.Time{}, false
	}
	nanos, err := strconv.ParseInt(rest[mid+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return rest[:mid], time.Unix(0, nanos).UTC(), true
}

// Stats assembles the public stats document for one event: like total,
// rolled-up view total and the minute buckets.
func (s *StatsStore) Stats(ctx context.Context, demoID string) (*models.DemoStats, error) {
	out := &models.DemoStats{DemoID: demoID}

	likes, err := s.Likes(ctx, demoID)
	if err != nil {
		return nil, err
	}
	out.Likes = likes

	err = s.db.View(func(txn *badger.Txn) error {
		return scanDocs(txn, prefixViewBucket+demoID+":", func(b *models.MinuteBucket) bool {
			out.Buckets = append(out.Buckets, *b)
			out.Views += b.Views
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out.Buckets, func(i, j int) bool {
		return out.Buckets[i].Minute.Before(out.Buckets[j].Minute)
	})
	return out, nil
}

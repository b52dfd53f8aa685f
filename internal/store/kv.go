// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// getDoc decodes the JSON document at key into out. Returns ErrNotFound
// when the key is absent.
func getDoc(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	}); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// putDoc encodes doc as JSON and writes it at key.
func putDoc(txn *badger.Txn, key []byte, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// scanDocs decodes every document under prefix, calling fn with a freshly
// allocated value. fn returning false stops the scan.
func scanDocs[T any](txn *badger.Txn, prefix string, fn func(*T) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var doc T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
		if err != nil {
			return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		if !fn(&doc) {
			return nil
		}
	}
	return nil
}

// updateWithRetry runs fn in a read-write transaction, retrying on
// optimistic-transaction conflicts.
func updateWithRetry(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < txnRetries; attempt++ {
		err = db.Update(fn)
		if !isConflict(err) {
			return err
		}
	}
	return err
}

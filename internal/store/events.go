// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package store

import (
	"context"

	"github.com/mkosonen/kulkue/internal/models"
)

// EventCollection is the capability set over the demonstrations collection.
// The audit recorder decorates this interface; tests substitute the
// in-memory implementation. No caller reaches the raw engine directly, so
// no write can escape auditing once a scope is bound.
type EventCollection interface {
	// Find returns all events matching the filter, ordered by (date,
	// running_number).
	Find(ctx context.Context, f Filter) ([]*models.Event, error)

	// FindOne returns the first match or ErrNotFound.
	FindOne(ctx context.Context, f Filter) (*models.Event, error)

	// Insert stores a new event, assigning id, slug, running number and
	// timestamps as needed, and returns the stored document.
	Insert(ctx context.Context, e *models.Event) (*models.Event, error)

	// InsertMany inserts a batch, returning the stored documents.
	InsertMany(ctx context.Context, events []*models.Event) ([]*models.Event, error)

	// UpdateOne applies the patch to the first match. Returns the number of
	// documents modified (0 or 1).
	UpdateOne(ctx context.Context, f Filter, u Update) (int, error)

	// UpdateMany applies the patch to every match.
	UpdateMany(ctx context.Context, f Filter, u Update) (int, error)

	// ReplaceOne swaps the first match's document body wholesale, keeping
	// id, running number, slug and created_at.
	ReplaceOne(ctx context.Context, f Filter, e *models.Event) error

	// FindOneAndUpdate atomically applies the patch to the first match and
	// returns the updated document, or ErrNotFound.
	FindOneAndUpdate(ctx context.Context, f Filter, u Update) (*models.Event, error)

	// Upsert inserts e unless a document already occupies the (date, parent)
	// schedule slot in the filter; at most one child per slot survives
	// concurrent expander runs. Returns whether a document was created and
	// the id of the occupying document.
	Upsert(ctx context.Context, f Filter, e *models.Event) (created bool, id string, err error)

	// DeleteOne removes the first match. Returns the number removed.
	DeleteOne(ctx context.Context, f Filter) (int, error)

	// DeleteMany removes every match.
	DeleteMany(ctx context.Context, f Filter) (int, error)

	// BulkWrite applies a mixed batch of sub-operations in order.
	BulkWrite(ctx context.Context, ops []WriteOp) (*BulkResult, error)
}

// WriteOp is one sub-operation of a BulkWrite. Exactly one field is set.
type WriteOp struct {
	Insert *models.Event `json:"insert,omitempty"`
	Update *UpdateOp     `json:"update,omitempty"`
	Delete *DeleteOp     `json:"delete,omitempty"`
	Upsert *UpsertOp     `json:"upsert,omitempty"`
}

// UpdateOp is the update variant of a WriteOp.
type UpdateOp struct {
	Filter Filter `json:"filter"`
	Update Update `json:"update"`
	Many   bool   `json:"many,omitempty"`
}

// DeleteOp is the delete variant of a WriteOp.
type DeleteOp struct {
	Filter Filter `json:"filter"`
	Many   bool   `json:"many,omitempty"`
}

// UpsertOp is the upsert variant of a WriteOp.
type UpsertOp struct {
	Filter Filter        `json:"filter"`
	Event  *models.Event `json:"event"`
}

// Name returns the operation name for audit actions.
func (op WriteOp) Name() string {
	switch {
	case op.Insert != nil:
		return "insert"
	case op.Update != nil:
		return "update"
	case op.Delete != nil:
		return "delete"
	case op.Upsert != nil:
		return "upsert"
	}
	return "noop"
}

// BulkResult summarizes a BulkWrite.
type BulkResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`

	// InsertedIDs and UpsertedIDs map sub-operation index to the id it
	// created or matched, so the audit recorder can fetch after-images.
	InsertedIDs map[int]string `json:"inserted_ids,omitempty"`
	UpsertedIDs map[int]string `json:"upserted_ids,omitempty"`
}

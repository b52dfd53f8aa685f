// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkosonen/kulkue/internal/models"
)

type contextKey int

const (
	scopeKey contextKey = iota
	actionKey
	requestMetaKey
)

// Scope binds a write stream to an actor. Job scopes carry the job key and
// a per-run id; user scopes carry the moderator's identity.
type Scope struct {
	// Key prefixes default audit actions, e.g. "expand_recurring" yields
	// "expand_recurring:update_one".
	Key   string
	Actor models.AuditActor
}

// WithJobScope opens an audit scope for a background job run. Every
// mutation through a recorder bound to this context is attributed to
// (job key, run id).
func WithJobScope(ctx context.Context, jobKey string) (context.Context, string) {
	runID := uuid.New().String()
	return context.WithValue(ctx, scopeKey, &Scope{
		Key: jobKey,
		Actor: models.AuditActor{
			Source: "job:" + jobKey,
			RunID:  runID,
		},
	}), runID
}

// WithUserScope opens an audit scope for a moderator acting over the
// HTTP surface.
func WithUserScope(ctx context.Context, userID, username, email string) context.Context {
	return context.WithValue(ctx, scopeKey, &Scope{
		Key: "user",
		Actor: models.AuditActor{
			UserID:   userID,
			Username: username,
			Email:    email,
			Source:   "user",
		},
	})
}

// ScopeFrom returns the bound scope, or nil when the context carries none.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey).(*Scope)
	return s
}

// WithAction overrides the derived "{scope_key}:{op}" action for the
// mutations issued under the returned context. Policy operations use this
// to record domain actions ("edit", "merge_duplicate_submission") instead
// of raw store op names.
func WithAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, actionKey, action)
}

func actionFrom(ctx context.Context) string {
	a, _ := ctx.Value(actionKey).(string)
	return a
}

// RequestMeta carries HTTP request metadata onto audit entries.
type RequestMeta struct {
	IP        string
	RequestID string
}

// WithRequestMeta attaches request metadata for audit entries written
// under the returned context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(requestMetaKey).(RequestMeta)
	return m
}

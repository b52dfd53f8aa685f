// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package api serves the public JSON surface: the demonstration listing,
// single-event lookup, like counters, stats and the submission endpoint.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/notify"
	"github.com/mkosonen/kulkue/internal/store"
)

// Stable error codes returned in the error envelope.
const (
	codeNotFound      = "NOT_FOUND"
	codeValidation    = "VALIDATION_ERROR"
	codeBadRequest    = "BAD_REQUEST"
	codeInternalError = "INTERNAL_ERROR"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	events     store.EventCollection
	stats      *store.StatsStore
	submitters *store.SubmitterStore
	cases      *store.CaseStore
	dispatcher *notify.Dispatcher
	clock      dateutil.Clock
}

// NewHandler wires the public API handlers over the audited event
// collection.
func NewHandler(events store.EventCollection, stats *store.StatsStore, submitters *store.SubmitterStore, cases *store.CaseStore, dispatcher *notify.Dispatcher, clock dateutil.Clock) *Handler {
	return &Handler{
		events:     events,
		stats:      stats,
		submitters: submitters,
		cases:      cases,
		dispatcher: dispatcher,
		clock:      clock,
	}
}

// respondJSON writes the response envelope with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Err(err).Msg("marshalling JSON response failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Err(err).Msg("writing JSON response failed")
	}
}

// generateETag creates a simple ETag from data using FNV-1a.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondError sends an error envelope with a stable code string.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Err(err).Str("code", code).Msg("API error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondData sends a success envelope.
func respondData(w http.ResponseWriter, status int, data any, count int, started time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(started).Milliseconds(),
			Count:       count,
		},
	})
}

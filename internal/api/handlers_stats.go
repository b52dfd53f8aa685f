// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package api

import (
	"net/http"
	"time"
)

// Like increments the like counter.
//
// Method: POST
// Path: /api/v1/demo/{id}/like
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, ok := h.lookupVisible(w, r)
	if !ok {
		return
	}
	total, err := h.stats.Like(r.Context(), e.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "like failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"likes": total}, 1, start)
}

// Unlike decrements the like counter, floored at zero.
//
// Method: POST
// Path: /api/v1/demo/{id}/unlike
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, ok := h.lookupVisible(w, r)
	if !ok {
		return
	}
	total, err := h.stats.Unlike(r.Context(), e.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "unlike failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"likes": total}, 1, start)
}

// Likes returns the current like total.
//
// Method: GET
// Path: /api/v1/demo/{id}/likes
func (h *Handler) Likes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, ok := h.lookupVisible(w, r)
	if !ok {
		return
	}
	total, err := h.stats.Likes(r.Context(), e.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "fetching likes failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"likes": total}, 1, start)
}

// Stats returns the pre-aggregated per-minute view buckets and the like
// total. A view is recorded for the caller as a side effect of fetching
// the event page, not here.
//
// Method: GET
// Path: /api/v1/demo/{id}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, ok := h.lookupVisible(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.Stats(r.Context(), e.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "fetching stats failed", err)
		return
	}
	respondData(w, http.StatusOK, stats, 1, start)
}

// View records one view hit for roll-up.
//
// Method: POST
// Path: /api/v1/demo/{id}/view
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, ok := h.lookupVisible(w, r)
	if !ok {
		return
	}
	if err := h.stats.RecordView(r.Context(), e.ID); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "recording view failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"recorded": true}, 1, start)
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/store"
)

// ListDemonstrations returns approved upcoming events.
//
// Method: GET
// Path: /api/v1/demonstrations
// Query: search, city (comma list), location, date (ISO)
func (h *Handler) ListDemonstrations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	f := store.Filter{
		Approved: store.Bool(true),
		Hidden:   store.Bool(false),
		Rejected: store.Bool(false),
		Merged:   store.Bool(false),
		InPast:   store.Bool(false),
		Search:   q.Get("search"),
	}

	if date := q.Get("date"); date != "" {
		if _, err := dateutil.ParseISO(date); err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		f.Date = date
	} else {
		f.DateGTE = dateutil.DateOf(h.clock.Now().UTC()).String()
	}

	if cities := q.Get("city"); cities != "" {
		f.Cities = strings.Split(cities, ",")
	}

	events, err := h.events.Find(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "listing demonstrations failed", err)
		return
	}

	if loc := strings.TrimSpace(q.Get("location")); loc != "" {
		events = filterByLocation(events, loc)
	}
	if events == nil {
		events = []*models.Event{}
	}
	respondData(w, http.StatusOK, events, len(events), start)
}

// filterByLocation keeps events whose city or address contains the needle.
func filterByLocation(events []*models.Event, needle string) []*models.Event {
	needle = strings.ToLower(needle)
	out := events[:0]
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.City), needle) ||
			strings.Contains(strings.ToLower(e.Address), needle) {
			out = append(out, e)
		}
	}
	return out
}

// GetDemonstration returns one approved event by stable id, running
// number or slug.
//
// Method: GET
// Path: /api/v1/demonstration/{id}
func (h *Handler) GetDemonstration(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, ok := h.lookupVisible(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, e, 1, start)
}

// lookupVisible resolves the {id} path parameter and enforces the
// approved-only visibility rule. Writes the error response itself when
// the lookup fails.
func (h *Handler) lookupVisible(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	ref := chi.URLParam(r, "id")
	e, err := h.resolve(r, ref)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "demonstration not found", nil)
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "lookup failed", err)
		return nil, false
	}
	if !e.Visible() {
		// Unapproved events are indistinguishable from absent ones.
		respondError(w, http.StatusNotFound, codeNotFound, "demonstration not found", nil)
		return nil, false
	}
	return e, true
}

func (h *Handler) resolve(r *http.Request, ref string) (*models.Event, error) {
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return h.events.FindOne(r.Context(), store.Filter{RunningNumber: &n})
	}
	e, err := h.events.FindOne(r.Context(), store.ByID(ref))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return h.events.FindOne(r.Context(), store.Filter{Slug: ref})
}

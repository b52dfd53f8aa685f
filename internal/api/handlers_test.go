// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosonen/kulkue/internal/audit"
	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/mailer"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/notify"
	"github.com/mkosonen/kulkue/internal/store"
)

type apiFixture struct {
	store   *store.Store
	mail    *mailer.Recording
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	clock := dateutil.FixedClock{T: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	s, err := store.Open(store.Options{Path: "", Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	rec := &mailer.Recording{}
	events := audit.NewRecorder(s.Events(), s.Audit())
	dispatcher := notify.NewDispatcher(notify.Config{
		AdminRecipients: []string{"mod@example.org"},
		BaseURL:         "https://example.org",
	}, events, s.Queue(), s.Submitters(), rec, clock)

	h := NewHandler(events, s.Stats(), s.Submitters(), s.Cases(), dispatcher, clock)
	return &apiFixture{
		store:   s,
		mail:    rec,
		handler: Router(Config{}, h),
	}
}

func (f *apiFixture) insertVisible(t *testing.T, title, date string) *models.Event {
	t.Helper()
	e, err := f.store.Events().Insert(context.Background(), &models.Event{
		Title:     title,
		Date:      date,
		City:      "Helsinki",
		EventType: models.EventTypeMarch,
		Approved:  true,
	})
	require.NoError(t, err)
	return e
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestListDemonstrations(t *testing.T) {
	f := newAPIFixture(t)

	f.insertVisible(t, "Ilmastomarssi", "2026-09-01")

	pending, err := f.store.Events().Insert(context.Background(), &models.Event{
		Title:     "Odottava",
		Date:      "2026-09-01",
		City:      "Helsinki",
		EventType: models.EventTypeMarch,
	})
	require.NoError(t, err)
	_ = pending

	past := f.insertVisible(t, "Mennyt", "2026-07-01")
	_, err = f.store.Events().UpdateOne(context.Background(), store.ByID(past.ID),
		store.Update{InPast: store.Bool(true)})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/v1/demonstrations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("ETag"))

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 1, resp.Metadata.Count)

	events, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, events, 1)
	first, ok := events[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ilmastomarssi", first["title"])
}

func TestListDemonstrationsFilters(t *testing.T) {
	f := newAPIFixture(t)

	f.insertVisible(t, "Ilmastomarssi", "2026-09-01")
	tre, err := f.store.Events().Insert(context.Background(), &models.Event{
		Title:     "Lakkovahti",
		Date:      "2026-09-15",
		City:      "Tampere",
		EventType: models.EventTypePicket,
		Approved:  true,
	})
	require.NoError(t, err)
	_ = tre

	w := f.do(t, http.MethodGet, "/api/v1/demonstrations?city=tampere", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeEnvelope(t, w).Metadata.Count)

	w = f.do(t, http.MethodGet, "/api/v1/demonstrations?search=ilmasto", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeEnvelope(t, w).Metadata.Count)

	w = f.do(t, http.MethodGet, "/api/v1/demonstrations?date=2026-09-15", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeEnvelope(t, w).Metadata.Count)

	w = f.do(t, http.MethodGet, "/api/v1/demonstrations?date=15.9.2026", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeBadRequest, decodeEnvelope(t, w).Error.Code)
}

func TestGetDemonstrationByEveryReference(t *testing.T) {
	f := newAPIFixture(t)
	e := f.insertVisible(t, "Ilmastomarssi", "2026-09-01")

	for _, ref := range []string{
		e.ID,
		e.Slug,
		fmt.Sprintf("%d", e.RunningNumber),
	} {
		w := f.do(t, http.MethodGet, "/api/v1/demonstration/"+ref, "")
		require.Equal(t, http.StatusOK, w.Code, ref)
		resp := decodeEnvelope(t, w)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, e.ID, data["_id"], ref)
	}
}

func TestGetDemonstrationHidesInvisible(t *testing.T) {
	f := newAPIFixture(t)

	pending, err := f.store.Events().Insert(context.Background(), &models.Event{
		Title:     "Odottava",
		Date:      "2026-09-01",
		City:      "Helsinki",
		EventType: models.EventTypeMarch,
	})
	require.NoError(t, err)

	// Unapproved events 404 exactly like absent ones.
	for _, ref := range []string{pending.ID, "no-such-demo"} {
		w := f.do(t, http.MethodGet, "/api/v1/demonstration/"+ref, "")
		require.Equal(t, http.StatusNotFound, w.Code, ref)
		resp := decodeEnvelope(t, w)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, codeNotFound, resp.Error.Code)
	}
}

func TestLikeEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	e := f.insertVisible(t, "Ilmastomarssi", "2026-09-01")

	w := f.do(t, http.MethodPost, "/api/v1/demo/"+e.Slug+"/like", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/demo/"+e.Slug+"/like", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/demo/"+e.Slug+"/unlike", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/demo/"+e.Slug+"/likes", "")
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeEnvelope(t, w).Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["likes"])
}

func TestViewAndStatsEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	e := f.insertVisible(t, "Ilmastomarssi", "2026-09-01")

	w := f.do(t, http.MethodPost, "/api/v1/demo/"+e.Slug+"/view", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/demo/"+e.Slug+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeEnvelope(t, w).Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, e.ID, data["demo_id"])
}

func submissionBody() map[string]any {
	return map[string]any{
		"title":           "Ilmastomarssi",
		"description":     "Kokoontuminen Senaatintorilla",
		"date":            "2026-09-01",
		"start_time":      "12:00",
		"city":            "Helsinki",
		"event_type":      "MARCH",
		"submitter_name":  "Matti",
		"submitter_email": "matti@example.org",
		"accept_terms":    true,
	}
}

func TestSubmitCreatesPendingEvent(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	body, err := json.Marshal(submissionBody())
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/demonstrations", string(body))
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeEnvelope(t, w)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	id, _ := data["_id"].(string)
	require.NotEmpty(t, id)

	// The submission lands unapproved with normalised times.
	stored, err := f.store.Events().FindOne(ctx, store.ByID(id))
	require.NoError(t, err)
	assert.False(t, stored.Approved)
	assert.Equal(t, "12:00:00", stored.StartTime)

	// And is invisible on the public surface until moderated.
	got := f.do(t, http.MethodGet, "/api/v1/demonstration/"+id, "")
	assert.Equal(t, http.StatusNotFound, got.Code)

	subs, err := f.store.Submitters().ByDemo(ctx, id)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "matti@example.org", subs[0].Email)

	cases, err := f.store.Cases().Open(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, models.CaseTypeNewDemo, cases[0].CaseType)
	assert.Equal(t, id, cases[0].DemoID)

	jobs, err := f.store.Queue().List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.NotificationTypeSubmissionReceived, jobs[0].NotificationType)

	// The submission is attributed in the audit trail.
	entries, err := f.store.Audit().EntriesByEvent(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "submit_demo", entries[0].Action)
	assert.Equal(t, "matti@example.org", entries[0].Actor.Email)
}

func TestSubmitValidation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing title", func(b map[string]any) { delete(b, "title") }},
		{"bad date", func(b map[string]any) { b["date"] = "1.9.2026" }},
		{"bad event type", func(b map[string]any) { b["event_type"] = "FLASHMOB" }},
		{"bad email", func(b map[string]any) { b["submitter_email"] = "not-an-email" }},
		{"terms not accepted", func(b map[string]any) { b["accept_terms"] = false }},
		{"bad start time", func(b map[string]any) { b["start_time"] = "25:99" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := submissionBody()
			tt.mutate(b)
			body, err := json.Marshal(b)
			require.NoError(t, err)

			w := f.do(t, http.MethodPost, "/api/v1/demonstrations", string(body))
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, codeValidation, decodeEnvelope(t, w).Error.Code)
		})
	}

	w := f.do(t, http.MethodPost, "/api/v1/demonstrations", "{not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeBadRequest, decodeEnvelope(t, w).Error.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

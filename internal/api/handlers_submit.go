// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mkosonen/kulkue/internal/audit"
	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/models"
	"github.com/mkosonen/kulkue/internal/validation"
)

// SubmissionRequest is the public submission payload.
type SubmissionRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=10000"`

	Date      string `json:"date" validate:"required,iso_date"`
	StartTime string `json:"start_time" validate:"omitempty,clock_time"`
	EndTime   string `json:"end_time" validate:"omitempty,clock_time"`

	City    string `json:"city" validate:"required,max=100"`
	Address string `json:"address" validate:"max=300"`

	EventType  string              `json:"event_type" validate:"required,event_type"`
	Tags       []string            `json:"tags" validate:"max=20,dive,max=50"`
	Organizers []models.Organizer  `json:"organizers" validate:"max=10"`
	Route      []models.RoutePoint `json:"route" validate:"max=200"`

	SubmitterName  string `json:"submitter_name" validate:"max=200"`
	SubmitterEmail string `json:"submitter_email" validate:"required,email"`
	AcceptTerms    bool   `json:"accept_terms" validate:"required"`
}

// Submit accepts a new demonstration. The event lands unapproved, a
// moderation case is opened and the submitter gets a confirmation mail.
//
// Method: POST
// Path: /api/v1/demonstrations
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body", nil)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	startTime, err := dateutil.NormalizeTime(req.StartTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid start_time", nil)
		return
	}
	endTime, err := dateutil.NormalizeTime(req.EndTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid end_time", nil)
		return
	}

	ctx := audit.WithUserScope(r.Context(), "", req.SubmitterName, req.SubmitterEmail)
	ctx = audit.WithAction(ctx, "submit_demo")
	ctx = audit.WithRequestMeta(ctx, audit.RequestMeta{
		IP:        r.RemoteAddr,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		StartTime:   startTime,
		EndTime:     endTime,
		City:        req.City,
		Address:     req.Address,
		EventType:   models.EventType(req.EventType),
		Tags:        req.Tags,
		Organizers:  req.Organizers,
		Route:       req.Route,
	}
	stored, err := h.events.Insert(ctx, event)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError, "storing submission failed", err)
		return
	}

	if _, err := h.submitters.Insert(ctx, &models.Submitter{
		DemonstrationID: stored.ID,
		Name:            req.SubmitterName,
		Email:           req.SubmitterEmail,
		AcceptTerms:     req.AcceptTerms,
	}); err != nil {
		logging.Err(err).Str("event_id", stored.ID).Msg("storing submitter record failed")
	}

	if _, err := h.cases.Insert(ctx, &models.Case{
		CaseType: models.CaseTypeNewDemo,
		DemoID:   stored.ID,
	}); err != nil {
		logging.Err(err).Str("event_id", stored.ID).Msg("opening moderation case failed")
	}

	if err := h.dispatcher.EnqueueSubmissionReceived(ctx, stored, req.SubmitterEmail); err != nil {
		logging.Err(err).Str("event_id", stored.ID).Msg("queueing confirmation mail failed")
	}

	respondData(w, http.StatusCreated, stored, 1, start)
}

// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package main is the entry point for the Kulkue server.
//
// Kulkue is a catalogue backend for demonstrations: it stores submitted
// events, expands recurring templates into concrete occurrences, merges
// duplicate submissions, reminds moderators about unprocessed events and
// serves the public read API.
//
// The server initializes components in this order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file, env)
//  2. Store: a single BadgerDB instance holding every collection
//  3. Audit recorder: wraps the event collection; job and user mutations
//     land in the edit history and audit log
//  4. Mailer: SMTP with a circuit breaker and an outbound rate limit
//  5. Background jobs: recurring expansion, duplicate sweep, organizer
//     refresh, auto-close, past-event hiding, analytics roll-up and the
//     notification dispatcher
//  6. HTTP server: the public JSON API
//
// Everything long-running sits in a suture supervisor tree with three
// layers (data, jobs, api) so a crashing job loop restarts in isolation
// instead of taking the API down.
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// listener drains in-flight requests (10s timeout), job loops stop at
// the next tick boundary and the store is closed last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkosonen/kulkue/internal/api"
	"github.com/mkosonen/kulkue/internal/audit"
	"github.com/mkosonen/kulkue/internal/config"
	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/jobs"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/mailer"
	"github.com/mkosonen/kulkue/internal/merge"
	"github.com/mkosonen/kulkue/internal/notify"
	"github.com/mkosonen/kulkue/internal/recurrence"
	"github.com/mkosonen/kulkue/internal/store"
	"github.com/mkosonen/kulkue/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Str("listen", cfg.Server.Listen).
		Int("admin_recipients", len(cfg.Notify.AdminRecipients)).
		Msg("Configuration loaded")

	clock := dateutil.SystemClock{}

	st, err := store.Open(store.Options{Path: cfg.Store.Path, Clock: clock})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// Every mutation made through this collection is recorded in the edit
	// history and audit log, attributed to the job run or user in scope.
	events := audit.NewRecorder(st.Events(), st.Audit())

	var mail mailer.Mailer
	if cfg.Mailer.Host != "" {
		mail = mailer.NewResilient(mailer.NewSMTP(cfg.Mailer), cfg.Mailer.RatePerMinute)
		logging.Info().Str("smtp_host", cfg.Mailer.Host).Msg("SMTP delivery enabled")
	} else {
		mail = mailer.LogOnly{}
		logging.Warn().Msg("No SMTP host configured, outbound mail is logged and dropped")
	}

	dispatcher := notify.NewDispatcher(cfg.Notify, events, st.Queue(), st.Submitters(), mail, clock)
	merger := merge.NewMerger(events, st.Submitters(), st.Queue(), st.Cases(), st.Reminders())
	expander := recurrence.NewExpander(events, st.Templates(), clock, merger)

	scheduler := jobs.NewScheduler(
		jobs.Job{Key: "expand_recurring", Period: cfg.Jobs.ExpandInterval, Run: expander.Run},
		jobs.Job{Key: "refresh_organizers", Period: cfg.Jobs.OrganizerInterval, Run: jobs.NewOrganizerRefresher(events, st.Organizations(), clock).Run},
		jobs.Job{Key: "auto_close_cases", Period: cfg.Jobs.AutoCloseInterval, Run: jobs.NewAutoCloser(events, st.Cases(), st.Organizations()).Run},
		jobs.Job{Key: "hide_past_events", Period: cfg.Jobs.PastHideInterval, Run: jobs.NewPastHider(events, clock).Run},
		jobs.Job{Key: "rollup_analytics", Period: cfg.Jobs.RollupInterval, Run: jobs.NewAnalyticsRollup(st.Stats()).Run},
		jobs.Job{Key: "dispatch_notifications", Period: cfg.Jobs.DispatchInterval, Run: dispatcher.RunOnce},
	)

	handler := api.NewHandler(events, st.Stats(), st.Submitters(), st.Cases(), dispatcher, clock)
	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.Router(cfg.Server, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(supervisor.NewGCService(st, cfg.Store.GCInterval))
	tree.AddJobService(scheduler)
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context cancelled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}

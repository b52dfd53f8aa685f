// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkosonen/kulkue/internal/middleware"
)

// Config holds HTTP server settings.
type Config struct {
	Listen string `koanf:"listen"`

	// RateLimit toggles per-IP request limiting on the public surface.
	RateLimit bool `koanf:"rate_limit"`

	// AllowedOrigins for CORS; empty allows none.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Router assembles the HTTP handler tree.
func Router(cfg Config, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Prometheus)
		if cfg.RateLimit {
			r.Use(httprate.LimitByIP(120, time.Minute))
		}

		r.Get("/demonstrations", h.ListDemonstrations)
		r.Get("/demonstration/{id}", h.GetDemonstration)

		r.Route("/demo/{id}", func(r chi.Router) {
			if cfg.RateLimit {
				// Counter endpoints get a tighter budget.
				r.Use(httprate.LimitByIP(30, time.Minute))
			}
			r.Post("/like", h.Like)
			r.Post("/unlike", h.Unlike)
			r.Get("/likes", h.Likes)
			r.Get("/stats", h.Stats)
			r.Post("/view", h.View)
		})

		if cfg.RateLimit {
			r.With(httprate.LimitByIP(10, time.Minute)).Post("/demonstrations", h.Submit)
		} else {
			r.Post("/demonstrations", h.Submit)
		}
	})

	return r
}

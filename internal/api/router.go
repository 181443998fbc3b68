// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casaflow/draftsync/internal/config"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	config  *config.ServerConfig
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, config: cfg}
}

// Setup wires all routes and middleware and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogging())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", headerUserID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints get a permissive limit so probes never starve.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(router.config))

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", router.handler.SaveDraft)
			r.Get("/", router.handler.ListDrafts)
			r.Post("/autosave", router.handler.AutosaveDraft)
			r.Post("/flush", router.handler.FlushAutosaves)

			r.Route("/{draftID}", func(r chi.Router) {
				r.Get("/", router.handler.LoadDraft)
				r.Delete("/", router.handler.DeleteDraft)
				r.Get("/exists", router.handler.HasDraft)
				r.Put("/media", router.handler.ReplaceMedia)
				r.Get("/media", router.handler.GetMedia)
			})
		})

		r.Post("/sync", router.handler.SyncDrafts)
		r.Put("/connectivity", router.handler.SetConnectivity)
		r.Get("/diagnostics", router.handler.Diagnostics)
		r.Delete("/cache", router.handler.ClearCache)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit keys by user identity when present so one busy wizard session
// cannot exhaust a shared NAT's budget, falling back to IP.
func rateLimit(cfg *config.ServerConfig) func(http.Handler) http.Handler {
	limit := cfg.RateLimitReqs
	if limit <= 0 {
		limit = 300
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	keyFunc := func(r *http.Request) (string, error) {
		if id := r.Header.Get(headerUserID); id != "" {
			return id, nil
		}
		return httprate.KeyByIP(r)
	}
	return httprate.Limit(limit, window, httprate.WithKeyFuncs(keyFunc))
}

// Package api implements the Flowforge HTTP API.
//
// The API exposes the pipeline lifecycle over JSON: building programs
// from manifests, rendering them, querying their dependency structure,
// rewriting them, and persisting them in the program store. Programs
// travel in their wire form (package io); operators are referenced by
// registry name.
//
// # Routes
//
//	GET    /healthz
//	POST   /v1/build
//	POST   /v1/render
//	POST   /v1/query/{kind}
//	POST   /v1/edit/remove
//	POST   /v1/edit/disconnect
//	POST   /v1/edit/splice
//	POST   /v1/edit/prune
//	GET    /v1/ops
//	GET    /v1/programs
//	PUT    /v1/programs/{name}
//	GET    /v1/programs/{name}
//	DELETE /v1/programs/{name}
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowforge/flowforge/pkg/cache"
	"github.com/flowforge/flowforge/pkg/op"
	"github.com/flowforge/flowforge/pkg/pipeline"
	"github.com/flowforge/flowforge/pkg/store"
)

// requestTimeout bounds every request, including SVG rendering.
const requestTimeout = 60 * time.Second

// Config carries the server's dependencies.
type Config struct {
	// Store persists programs. Required.
	Store store.Store

	// Cache holds built programs and rendered artifacts. Defaults to a
	// null cache.
	Cache cache.Cache

	// Registry resolves operator names in wire programs. Defaults to the
	// built-in registry.
	Registry *op.Registry

	// Logger receives request and error logs. Defaults to log.Default().
	Logger *log.Logger
}

// Server is the Flowforge HTTP API.
type Server struct {
	store    store.Store
	cache    cache.Cache
	keyer    cache.Keyer
	registry *op.Registry
	runner   *pipeline.Runner
	logger   *log.Logger
}

// New creates a server from the config.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("api: store is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Registry == nil {
		cfg.Registry = op.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	// The server shares cache backends with CLI runners, so its direct
	// entries live under their own prefix.
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "api:")

	return &Server{
		store:    cfg.Store,
		cache:    cfg.Cache,
		keyer:    keyer,
		registry: cfg.Registry,
		runner:   pipeline.NewRunner(cfg.Cache, nil, cfg.Logger),
		logger:   cfg.Logger,
	}, nil
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/build", s.handleBuild)
		r.Post("/render", s.handleRender)
		r.Post("/query/{kind}", s.handleQuery)

		r.Route("/edit", func(r chi.Router) {
			r.Post("/remove", s.handleRemove)
			r.Post("/disconnect", s.handleDisconnect)
			r.Post("/splice", s.handleSplice)
			r.Post("/prune", s.handlePrune)
		})

		r.Get("/ops", s.handleOps)

		r.Route("/programs", func(r chi.Router) {
			r.Get("/", s.handleListPrograms)
			r.Put("/{name}", s.handleSaveProgram)
			r.Get("/{name}", s.handleGetProgram)
			r.Delete("/{name}", s.handleDeleteProgram)
		})
	})

	return r
}

// logRequests logs one line per request with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package server exposes store knowledge and certificate OCR over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

const serviceName = "Shopkeep API"

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    RateLimitConfig
	Build        BuildInfo
	// Services enables the store and certificate routes. Without it only
	// the system routes are served.
	Services *Services
}

// BuildInfo identifies the binary serving the API. The CLI's version
// command prints the same value.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Server wraps a chi router with huma API and HTTP server.
type Server struct {
	router   chi.Router
	api      huma.API
	cfg      Config
	services *Services

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Server with middleware, the OpenAPI description and all
// routes registered.
func New(cfg Config) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, shoperr.New(shoperr.CodeServerConfigInvalid, "listen address is required")
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	// Generation and OCR are slow.
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 180 * time.Second
	}
	if cfg.Build.Version == "" {
		cfg.Build.Version = "dev"
	}

	done := make(chan struct{})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware(cfg.RateLimit, done))

	humaConfig := huma.DefaultConfig(serviceName, cfg.Build.Version)
	humaConfig.Info.Description = "Store knowledge registration, question answering and business certificate OCR"
	api := humachi.New(r, humaConfig)

	s := &Server{
		router:   r,
		api:      api,
		cfg:      cfg,
		services: cfg.Services,
		done:     done,
	}

	s.registerSystemRoutes()
	if s.services != nil {
		s.registerStoreRoutes()
		s.registerUploadRoute()
	}
	return s, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return shoperr.Wrapf(err, shoperr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("http server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return shoperr.Wrap(err, shoperr.CodeServerStartFailure, "serving http")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return shoperr.Wrap(err, shoperr.CodeServerShutdownFailure, "shutting down")
	}
	return <-errCh
}

// Close stops background goroutines. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// apiError converts a service error into a huma error with the mapped
// status. Server-side failures are logged and their detail withheld.
func apiError(op string, err error) huma.StatusError {
	status := shoperr.HTTPStatus(err)
	attrs := []any{"op", op, "code", string(shoperr.CodeOf(err)), "error", err}
	if id, ok := shoperr.FieldsOf(err)["store_id"]; ok {
		attrs = append(attrs, "store_id", id)
	}

	switch {
	case status == http.StatusInternalServerError:
		slog.Error("request failed", attrs...)
		return huma.Error500InternalServerError(op + " failed")
	case status == http.StatusBadGateway:
		slog.Error("upstream failure", attrs...)
		return huma.Error502BadGateway(op + " failed: upstream service error: " + err.Error())
	default:
		slog.Debug("request rejected", attrs...)
		return huma.NewError(status, err.Error())
	}
}

// writeProblem writes an RFC 9457 body shaped like huma's own errors for
// handlers outside huma.
func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	body := &huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write error response", "error", err)
	}
}

// Package gateway is the HTTP surface of trigger-gw. It runs the linear
// pipeline for each delivery: origin checks, signature resolution against
// the fetched credential pool, two-tier authorization, trigger construction,
// and the notifier hand-off.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/zbee/trigger-gw/internal/audit"
	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/keystore"
	"github.com/zbee/trigger-gw/internal/notify"
)

// CredentialFetcher fetches the credential set for one delivery.
type CredentialFetcher interface {
	Fetch(ctx context.Context) (*keystore.Set, error)
}

// Config holds gateway server configuration.
type Config struct {
	Listen          string
	MaxBodySize     int64
	UpstreamTimeout time.Duration
	WorkerVersion   string
}

// Server represents the gateway HTTP server.
type Server struct {
	config   Config
	store    CredentialFetcher
	notifier notify.Notifier
	auditLog *audit.Log
	logger   *slog.Logger
	server   *http.Server

	startedAt time.Time
}

// New creates a new gateway server instance. auditLog may be nil.
func New(config Config, store CredentialFetcher, notifier notify.Notifier, auditLog *audit.Log, logger *slog.Logger) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 1048576
	}
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 10 * time.Second
	}
	return &Server{
		config:    config,
		store:     store,
		notifier:  notifier,
		auditLog:  auditLog,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the gateway HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("gateway starting", "listen", s.config.Listen, "version", s.config.WorkerVersion)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("gateway shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("gateway error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Reflect the request Origin; the response always varies on it.
	r.Use(cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowedMethods:  []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:  []string{"*"},
	}).Handler)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealthz)
	r.Get("/*", s.handleInfo)
	r.Post("/*", s.handleDelivery)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("gateway request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		Version:       s.config.WorkerVersion,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleInfo answers GET on any other path with a service descriptor.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, InfoResponse{
		Service: "trigger-gw",
		Version: s.config.WorkerVersion,
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a plain JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: ErrorBody{Code: "error", Detail: message}})
}

// respondFault serializes a pipeline fault with its mapped status.
func (s *Server) respondFault(w http.ResponseWriter, f *fault.Fault) {
	s.respondJSON(w, statusForCode(f.Code), ErrorResponse{
		Error: ErrorBody{Code: string(f.Code), Detail: f.Detail},
	})
}

// statusForCode maps the fault taxonomy to HTTP statuses. Misconfiguration
// (empty credential set, empty global allow-list) is 503, caller faults are
// 4xx, upstream breakage is 502/504.
func statusForCode(code fault.Code) int {
	switch code {
	case fault.NonPermissibleOrigin,
		fault.NonPermissibleKey,
		fault.NonPermissibleRepository,
		fault.NonPermissibleRepositoryForKey:
		return http.StatusForbidden
	case fault.NonPermissibleTrigger,
		fault.UnexpectedRequestBody,
		fault.NoBranchProvided:
		return http.StatusBadRequest
	case fault.EmptyCredentialSet,
		fault.NoPermissibleRepositories:
		return http.StatusServiceUnavailable
	case fault.BrokenCredentialStore,
		fault.BrokenNotifier:
		return http.StatusBadGateway
	case fault.UpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

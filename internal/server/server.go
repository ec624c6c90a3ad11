// Package server provides the HTTP REST API for the training planner.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/observability"
	"github.com/jonathan/training-planner/internal/pipeline"
	"github.com/jonathan/training-planner/internal/prompts"
	"github.com/jonathan/training-planner/internal/server/middleware"
	"github.com/jonathan/training-planner/internal/server/ratelimit"
	"github.com/jonathan/training-planner/internal/types"
)

// ArtifactService reads and creates configuration artifacts. Implemented by registry.Service.
type ArtifactService interface {
	Get(ctx context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error)
	List(ctx context.Context, kind types.ArtifactKind, limit int) ([]types.Artifact, error)
	Create(ctx context.Context, kind types.ArtifactKind, payload []byte) (types.Artifact, error)
}

// Store is the read side of persistence used by the handlers. Implemented by db.DB.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	SearchRaces(ctx context.Context, query string) ([]types.Race, error)
	GetRace(ctx context.Context, id uuid.UUID) (*types.Race, error)
	GetTrainingPlan(ctx context.Context, athleteID, planID uuid.UUID) (*types.TrainingPlan, error)
	UpdatePlanStatus(ctx context.Context, athleteID, planID uuid.UUID, status types.PlanStatus) (*types.TrainingPlan, error)
	ListGenerationRuns(ctx context.Context, athleteID uuid.UUID, limit int) ([]types.GenerationRun, error)
	Ping(ctx context.Context) error
}

// Generator runs the generation pipeline. Implemented by pipeline.Generator.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Prompt(ctx context.Context, req pipeline.Request) (*prompts.Prompt, error)
}

// Options wires a Server
type Options struct {
	Port      int
	Artifacts ArtifactService
	Store     Store
	Generator Generator
	Tokens    middleware.TokenValidator
	// RateLimiter defaults to an in-memory limiter from the environment
	RateLimiter ratelimit.Checker
	// GenerationTimeout bounds one generation request; zero means no extra bound
	GenerationTimeout time.Duration
	Logger            *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer        *http.Server
	handler           http.Handler
	artifacts         ArtifactService
	store             Store
	generator         Generator
	rateLimiter       ratelimit.Checker
	generationTimeout time.Duration
	logger            *zap.Logger
}

// New creates a new server instance
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}

	s := &Server{
		artifacts:         opts.Artifacts,
		store:             opts.Store,
		generator:         opts.Generator,
		rateLimiter:       limiter,
		generationTimeout: opts.GenerationTimeout,
		logger:            logger,
	}

	auth := middleware.AuthMiddleware(opts.Tokens, func(w http.ResponseWriter, _ *http.Request) {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized", nil)
	})
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Configuration artifacts
	mux.Handle("GET /{kind}", protected(s.handleListArtifacts))
	mux.Handle("POST /{kind}", protected(s.handleCreateArtifact))
	mux.Handle("GET /{kind}/{id}", protected(s.handleGetArtifact))

	// Race catalog
	mux.Handle("GET /races", protected(s.handleSearchRaces))
	mux.Handle("GET /races/{id}", protected(s.handleGetRace))

	// Plans
	mux.Handle("POST /plans/generate", protected(s.handleGeneratePlan))
	mux.Handle("POST /plans/generate/stream", protected(s.handleGeneratePlanStream))
	mux.Handle("POST /plans/prompt", protected(s.handlePromptPreview))
	mux.Handle("GET /plans/runs", protected(s.handleListGenerationRuns))
	mux.Handle("GET /plans/{id}", protected(s.handleGetPlan))
	mux.Handle("PATCH /plans/{id}/status", protected(s.handleUpdatePlanStatus))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // generation waits on the model backend
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests over the client's limit. Limiter failures are logged
// and the request is let through.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)

		info, err := s.rateLimiter.Allow(r.Context(), clientID, r.URL.Path, r.Method)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", zap.String("backend", s.rateLimiter.Backend()), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, info)
		if !info.Allowed {
			observability.RateLimitHits.WithLabelValues(s.rateLimiter.Backend()).Inc()
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush lets streaming handlers flush through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging logs each request and records HTTP metrics
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		observability.RecordHTTPRequest(r.Method, strconv.Itoa(rec.status), elapsed.Seconds())
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	s.jsonResponse(w, code, map[string]any{"success": code == http.StatusOK, "status": status})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// successResponse writes the envelope with the payload under key
func (s *Server) successResponse(w http.ResponseWriter, status int, key string, payload any) {
	s.jsonResponse(w, status, map[string]any{"success": true, key: payload})
}

// errorResponse writes the failure envelope
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string, details map[string]any) {
	body := map[string]any{"success": false, "error": message}
	if details != nil {
		body["details"] = details
	}
	s.jsonResponse(w, status, body)
}

// fail maps err to its status and writes the failure envelope. Internal errors are
// logged and their text withheld.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "internal server error"
	}
	s.errorResponse(w, status, message, errorDetails(err))
}

// extractClientID uses the IP from RemoteAddr. Forwarded headers are not trusted.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	details := map[string]any{
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		details["reset_at"] = info.ResetTime.UTC().Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		details["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("client", clientID),
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime),
	)
	s.errorResponse(w, http.StatusTooManyRequests, "rate_limit_exceeded", details)
}

// Package http exposes the bolão views and the admin write surface as a
// JSON API over chi, plus the health routes and the Prometheus endpoint.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/ledger"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scout"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/interface/http/handlers"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// AllowedOrigins - allowed origins for CORS; empty disables CORS headers.
	AllowedOrigins []string

	// RateLimit - requests per second per IP (0 = disabled), with RateBurst.
	RateLimit float64
	RateBurst int

	// TrustedProxies - proxy addresses or CIDR ranges whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means the TCP peer is the
	// client.
	TrustedProxies []string

	// AdminKeyHashes - bcrypt hashes of admin API keys. Admin routes are
	// only mounted when at least one is configured.
	AdminKeyHashes []string

	// Version is reported by the health endpoint.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		AllowedOrigins: []string{"*"},
		RateLimit:      20,
		RateBurst:      40,
		Version:        "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// RankingQuerier serves GET /ranking.
type RankingQuerier interface {
	Handle(ctx context.Context, q query.GetRankingQuery) (*query.GetRankingResult, error)
}

// ProfileQuerier serves the trophy room.
type ProfileQuerier interface {
	Handle(ctx context.Context, q query.GetProfileQuery) (*medal.Profile, error)
}

// ScoutQuerier serves the analytics report.
type ScoutQuerier interface {
	Handle(ctx context.Context, q query.GetScoutQuery) (*scout.Report, error)
}

// LedgerQuerier serves the points statement.
type LedgerQuerier interface {
	Handle(ctx context.Context, q query.GetLedgerQuery) (*ledger.Statement, error)
}

// CompareQuerier serves the head-to-head view.
type CompareQuerier interface {
	Handle(ctx context.Context, q query.CompareQuery) (*query.CompareResult, error)
}

// MatchesQuerier serves the match board.
type MatchesQuerier interface {
	Handle(ctx context.Context, q query.ListMatchesQuery) (*query.ListMatchesResult, error)
}

// VotersQuerier serves the voter lists of one match.
type VotersQuerier interface {
	Handle(ctx context.Context, q query.GetMatchVotersQuery) (*query.MatchVotersResult, error)
}

// GuessSubmitter stores a prediction.
type GuessSubmitter interface {
	Handle(ctx context.Context, cmd command.SubmitGuessCommand) (*command.SubmitGuessResult, error)
}

// MatchCreator stores a new fixture.
type MatchCreator interface {
	Handle(ctx context.Context, cmd command.CreateMatchCommand) (*command.CreateMatchResult, error)
}

// MatchUpdater edits a fixture.
type MatchUpdater interface {
	Handle(ctx context.Context, cmd command.UpdateMatchCommand) (*command.UpdateMatchResult, error)
}

// ResultRecorder stores a final score.
type ResultRecorder interface {
	Handle(ctx context.Context, cmd command.RecordResultCommand) (*command.RecordResultResult, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) handlers.HealthStatus
}

// Metrics records HTTP requests.
// Implementation: internal/infrastructure/metrics.Registry.
type Metrics interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Dependencies contains all dependencies required by HTTP handlers.
// A nil query or command handler makes its route answer 501.
type Dependencies struct {
	// Query Handlers (CQRS Read Side)
	Ranking RankingQuerier
	Profile ProfileQuerier
	Scout   ScoutQuerier
	Ledger  LedgerQuerier
	Compare CompareQuerier
	Matches MatchesQuerier
	Voters  VotersQuerier

	// Command Handlers (CQRS Write Side)
	SubmitGuess  GuessSubmitter
	CreateMatch  MatchCreator
	UpdateMatch  MatchUpdater
	RecordResult ResultRecorder

	HealthChecker  HealthChecker
	Metrics        Metrics
	MetricsHandler http.Handler

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	router     chi.Router
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	ips := NewClientIPResolver(s.config.TrustedProxies)
	r.Use(loggingMiddleware(s.logger, s.deps.Metrics, ips))
	r.Use(recoveryMiddleware(s.logger))
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(s.config.AllowedOrigins))
	}
	if s.config.RateLimit > 0 {
		r.Use(rateLimitMiddleware(NewIPRateLimiter(s.config.RateLimit, max(1, s.config.RateBurst)), ips))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	if s.deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// ─────────────────────────────────────────────────────────────────────
		// Public views
		// ─────────────────────────────────────────────────────────────────────
		r.Get("/ranking", s.handleGetRanking)
		r.Get("/matches", s.handleListMatches)
		r.Get("/matches/{id}/voters", s.handleGetMatchVoters)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/profile", s.handleGetProfile)
			r.Get("/scout", s.handleGetScout)
			r.Get("/ledger", s.handleGetLedger)
			r.Get("/compare/{rivalId}", s.handleCompare)
		})

		// ─────────────────────────────────────────────────────────────────────
		// Writes (admin key)
		// ─────────────────────────────────────────────────────────────────────
		if len(s.config.AdminKeyHashes) == 0 {
			return
		}
		auth := NewAPIKeyAuth(s.config.AdminKeyHashes)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Put("/matches/{id}/guesses/{userId}", s.handleSubmitGuess)
			r.Post("/admin/matches", s.handleCreateMatch)
			r.Patch("/admin/matches/{id}", s.handleUpdateMatch)
			r.Put("/admin/matches/{id}/result", s.handleRecordResult)
		})
	})

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

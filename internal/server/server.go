package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/meetingbooker/internal/calendar"
	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/scheduling"
)

const (
	// DefaultAddr matches the port the booking frontend expects.
	DefaultAddr = ":5001"

	// DefaultMaxBodyBytes limits /schedule request bodies.
	DefaultMaxBodyBytes = 64 << 10

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultExchangeTimeout   = 30 * time.Second
)

// Scheduler runs one scheduling attempt. *scheduling.Orchestrator implements it.
type Scheduler interface {
	Schedule(ctx context.Context, source string, raw scheduling.RawRequest) scheduling.Outcome
}

// TokenManager holds the Google credentials. *google.CredentialStore implements it.
type TokenManager interface {
	TokenStatusReporter
	SetToken(tok *oauth2.Token) error
}

// CalendarChecker verifies calendar access. *calendar.Client implements it.
type CalendarChecker interface {
	GetCalendar(ctx context.Context, calendarID string) (*calendar.CalendarInfo, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr string
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS.
	AllowedOrigin string
	// WriteTimeout must cover the calendar and mail calls of one request.
	WriteTimeout time.Duration
	// ExchangeTimeout bounds the authorization code exchange with Google.
	ExchangeTimeout time.Duration
	MaxBodyBytes    int64
	// CalendarID is checked by /debug/calendar.
	CalendarID string
	// EnableDebug exposes /debug/token and /debug/calendar.
	EnableDebug bool
	Version     string
}

// Dependencies are the collaborators injected into the server.
type Dependencies struct {
	Scheduler Scheduler
	OAuth     *oauth2.Config
	Tokens    TokenManager
	Calendar  CalendarChecker
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// Server is the public HTTP surface of the booking service.
type Server struct {
	config  Config
	deps    Dependencies
	logger  *slog.Logger
	respond responder
	states  *stateStore
	health  *HealthChecker

	httpServer *http.Server
}

// New creates a server. Scheduler is required; OAuth, Tokens and Calendar are
// optional and disable the routes that need them.
func New(config Config, deps Dependencies) (*Server, error) {
	if deps.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if deps.OAuth != nil && deps.Tokens == nil {
		return nil, errors.New("token manager is required when OAuth is configured")
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.ExchangeTimeout <= 0 {
		config.ExchangeTimeout = defaultExchangeTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.CalendarID == "" {
		config.CalendarID = scheduling.DefaultCalendarID
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "http")

	var reporter TokenStatusReporter
	if deps.Tokens != nil {
		reporter = deps.Tokens
	}

	return &Server{
		config:  config,
		deps:    deps,
		logger:  logger,
		respond: newResponder(logger),
		states:  newStateStore(DefaultStateTTL),
		health:  NewHealthChecker(reporter, config.Version),
	}, nil
}

// Health returns the health checker.
func (s *Server) Health() *HealthChecker { return s.health }

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.deps.OAuth != nil {
		mux.HandleFunc("GET /auth", s.handleAuth)
		mux.HandleFunc("GET /oauth2callback", s.handleOAuthCallback)
	}
	mux.HandleFunc("POST /schedule", s.handleSchedule)
	if s.config.EnableDebug {
		if s.deps.Tokens != nil {
			mux.HandleFunc("GET /debug/token", s.handleDebugToken)
		}
		if s.deps.Calendar != nil {
			mux.HandleFunc("GET /debug/calendar", s.handleDebugCalendar)
		}
	}
	s.health.RegisterHealthEndpoints(mux)

	var h http.Handler = mux
	h = recoverPanics(h, s.respond)
	h = cors(h, s.config.AllowedOrigin)
	return instrument(h, s.deps.Metrics, s.logger)
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed after
// a graceful shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	s.logger.Info("starting HTTP server", slog.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.config.Addr }

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/server"
)

// HTTPConfig holds the settings of the public HTTP listener.
type HTTPConfig struct {
	Addr          string
	AllowedOrigin string
	EnableDebug   bool
	WriteTimeout  time.Duration
}

var httpEnvBindings = []envBinding{
	{"http-addr", []string{"HTTP_ADDR"}},
	{"cors-allowed-origin", []string{"CORS_ALLOWED_ORIGIN"}},
	{"debug-endpoints", []string{"DEBUG_ENDPOINTS"}},
}

func newServeCmd() *cobra.Command {
	var (
		config     ServiceConfig
		httpConfig HTTPConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scheduling service",
		Long: `Start the HTTP service that books meetings.

Endpoints:
  GET  /auth             Returns the Google consent URL for the service identity
  GET  /oauth2callback   Completes the authorization and stores the token
  POST /schedule         Creates the event with a Meet link and emails the attendee
  GET  /healthz, /readyz, /healthz/detailed
  GET  /debug/token, /debug/calendar (with --debug-endpoints)

/oauth2callback only accepts the state value issued by a prior GET /auth on
the same process, single use and valid for 10 minutes. Callbacks without it
are rejected with 400 invalid_state; use 'meetingbooker auth' to paste a code
by hand.

Prometheus metrics are served on a separate port (--metrics-addr).

The listen address defaults to :5001. When neither --http-addr nor HTTP_ADDR
is set, the PORT env var selects the port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd, serviceEnvBindings); err != nil {
				return err
			}
			if err := applyEnv(cmd, httpEnvBindings); err != nil {
				return err
			}
			httpConfig.Addr = resolveHTTPAddr(cmd, httpConfig.Addr)
			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			return runServe(&config, httpConfig)
		},
	}

	addServiceFlags(cmd, &config)
	cmd.Flags().StringVar(&httpConfig.Addr, "http-addr", server.DefaultAddr, "HTTP listen address. Can also use HTTP_ADDR or PORT env vars.")
	cmd.Flags().StringVar(&httpConfig.AllowedOrigin, "cors-allowed-origin", "*", "Access-Control-Allow-Origin sent to browsers; empty disables CORS. Can also use CORS_ALLOWED_ORIGIN env var.")
	cmd.Flags().BoolVar(&httpConfig.EnableDebug, "debug-endpoints", false, "Expose /debug/token and /debug/calendar. Can also use DEBUG_ENDPOINTS env var.")
	cmd.Flags().DurationVar(&httpConfig.WriteTimeout, "write-timeout", 0, "HTTP write timeout; defaults to twice the provider timeout plus a margin")

	return cmd
}

// resolveHTTPAddr falls back to PORT when the address was neither given as a
// flag nor through HTTP_ADDR.
func resolveHTTPAddr(cmd *cobra.Command, addr string) string {
	if cmd.Flags().Changed("http-addr") {
		return addr
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return addr
}

func runServe(config *ServiceConfig, httpConfig HTTPConfig) error {
	logger, err := logging.Setup(os.Stderr, config.LogFormat, config.LogLevel)
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, instrConfig, err := newInstrumentation(shutdownCtx)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	svc, err := newService(shutdownCtx, config, provider, instrConfig.AuditLogging, logger)
	if err != nil {
		return err
	}

	metricsServer, err := startMetricsServer(config.Metrics, provider, logger)
	if err != nil {
		return err
	}

	writeTimeout := httpConfig.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 2*svc.policy.CallTimeout + 10*time.Second
	}

	srv, err := server.New(server.Config{
		Addr:            httpConfig.Addr,
		AllowedOrigin:   httpConfig.AllowedOrigin,
		WriteTimeout:    writeTimeout,
		ExchangeTimeout: svc.policy.CallTimeout,
		CalendarID:      svc.policy.CalendarID,
		EnableDebug:     httpConfig.EnableDebug,
		Version:         version,
	}, server.Dependencies{
		Scheduler: svc.scheduler,
		OAuth:     svc.oauth,
		Tokens:    svc.credentials,
		Calendar:  svc.calendar,
		Metrics:   provider.Metrics(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting meetingbooker",
		slog.String("version", version),
		slog.String("addr", srv.Addr()),
		slog.String("calendar_id", svc.policy.CalendarID),
		slog.String("timezone", svc.policy.Location.String()),
		slog.Duration("duration", svc.policy.Duration),
		slog.String("idempotency", string(svc.policy.IdempotencyMode)),
		logging.Transport(svc.transport.Name()),
		slog.Bool("authorized", svc.credentials.HasToken()))

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server stopped with error: %w", err)
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}

// startMetricsServer starts the Prometheus endpoint when enabled. It returns
// nil when metrics are disabled or not exported through Prometheus.
func startMetricsServer(config MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	if !config.Enabled || !provider.Enabled() || provider.MetricsHandler() == nil {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// A bind failure surfaces almost immediately.
	select {
	case err, ok := <-metricsErr:
		if ok {
			return nil, fmt.Errorf("metrics server failed to start: %w", err)
		}
	case <-time.After(200 * time.Millisecond):
	}
	logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	return metricsServer, nil
}

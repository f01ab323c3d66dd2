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

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/tools/scheduling_tools"
)

// MCP transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

var mcpEnvBindings = []envBinding{
	{"transport", []string{"MCP_TRANSPORT"}},
	{"mcp-addr", []string{"MCP_HTTP_ADDR"}},
}

func newMCPCmd() *cobra.Command {
	var (
		config    ServiceConfig
		transport string
		httpAddr  string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the scheduler to AI
assistants.

Tools:
  - schedule_meeting: create the event with a Meet link and email the attendee
  - check_calendar: verify that the booking calendar is reachable

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

The streamable-http transport has no authentication of its own. Bind it to a
loopback address or put it behind an authenticating proxy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd, serviceEnvBindings); err != nil {
				return err
			}
			if err := applyEnv(cmd, mcpEnvBindings); err != nil {
				return err
			}
			if transport != transportStdio && transport != transportStreamableHTTP {
				return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
			}
			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			return runMCP(&config, transport, httpAddr)
		},
	}

	addServiceFlags(cmd, &config)
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().StringVar(&httpAddr, "mcp-addr", "127.0.0.1:8080", "Listen address of the streamable-http transport. Can also use MCP_HTTP_ADDR env var.")

	return cmd
}

func runMCP(config *ServiceConfig, transport, httpAddr string) error {
	// stdout carries the protocol in stdio mode; logs always go to stderr.
	logger, err := logging.Setup(os.Stderr, config.LogFormat, config.LogLevel)
	if err != nil {
		return err
	}

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
	if !svc.credentials.HasToken() {
		logger.Warn("no Google token available, run 'meetingbooker auth' before scheduling")
	}

	mcpSrv := mcpserver.NewMCPServer("meetingbooker", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, scheduling_tools.Deps{
		Scheduler:  svc.scheduler,
		Calendar:   svc.calendar,
		CalendarID: svc.policy.CalendarID,
		Metrics:    provider.Metrics(),
		Logger:     logger,
	}); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	switch transport {
	case transportStreamableHTTP:
		metricsServer, err := startMetricsServer(config.Metrics, provider, logger)
		if err != nil {
			return err
		}
		if metricsServer != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(ctx); err != nil {
					logger.Error("metrics server shutdown failed", logging.Err(err))
				}
			}()
		}
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, httpAddr, logger)
	default:
		return runStdioServer(mcpSrv)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("starting MCP server", slog.String("transport", transportStreamableHTTP), slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown MCP server: %w", err)
		}
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/scheduling"
)

func newScheduleCmd() *cobra.Command {
	var (
		config ServiceConfig
		raw    scheduling.RawRequest
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule one meeting and send the confirmation",
		Long: `Schedule a single meeting from the command line.

The result is printed as the same JSON document POST /schedule returns. The
command exits non-zero when the request is invalid or the event could not be
created; a failed confirmation email still exits zero with a warning.

Example:
  meetingbooker schedule --name Ada --email ada@example.com --date-time 2025-03-10T14:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd, serviceEnvBindings); err != nil {
				return err
			}
			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			return runSchedule(&config, raw, cmd.OutOrStdout())
		},
	}

	addServiceFlags(cmd, &config)
	cmd.Flags().StringVar(&raw.Name, "name", "", "Attendee name")
	cmd.Flags().StringVar(&raw.Email, "email", "", "Attendee email address")
	cmd.Flags().StringVar(&raw.DateTime, "date-time", "", "Meeting start, RFC 3339 or local time in --timezone")

	return cmd
}

func runSchedule(config *ServiceConfig, raw scheduling.RawRequest, out io.Writer) error {
	logger, err := logging.Setup(os.Stderr, config.LogFormat, config.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, instrConfig, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	svc, err := newService(ctx, config, provider, instrConfig.AuditLogging, logger)
	if err != nil {
		return err
	}

	outcome := svc.scheduler.Schedule(ctx, instrumentation.SourceCLI, raw)
	return writeOutcome(out, outcome)
}

// writeOutcome prints the response and turns non-success outcomes into errors.
func writeOutcome(out io.Writer, outcome scheduling.Outcome) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.Response()); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	switch outcome.Kind() {
	case scheduling.KindSuccess:
		return nil
	case scheduling.KindClientError, scheduling.KindHardFailure:
		return fmt.Errorf("scheduling failed: %w", outcome.Err())
	default:
		return fmt.Errorf("unexpected outcome %s", outcome.Kind())
	}
}

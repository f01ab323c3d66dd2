package cmd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/mail"
	"github.com/teemow/meetingbooker/internal/scheduling"
)

func validConfig() ServiceConfig {
	return ServiceConfig{
		Google: GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TokenFile:    "/nonexistent/google.token",
		},
		Meeting: MeetingConfig{
			Timezone:        "Europe/Berlin",
			Duration:        30 * time.Minute,
			CalendarID:      "primary",
			IdempotencyMode: "random",
			ProviderTimeout: 30 * time.Second,
		},
		Mail: MailConfig{
			Transport:  mail.TransportSMTP,
			From:       "bookings@example.com",
			SenderName: "Meeting Scheduler",
			SMTPHost:   "smtp.example.com",
			SMTPPort:   587,
			SMTPPass:   "app-password",
		},
		LogFormat: logging.FormatText,
		LogLevel:  "info",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCommand(config *ServiceConfig) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addServiceFlags(cmd, config)
	return cmd
}

func TestApplyEnv(t *testing.T) {
	t.Run("env fills unset flags", func(t *testing.T) {
		t.Setenv("G_CLIENT_ID", "env-client")
		t.Setenv("MEETING_DURATION", "45m")
		t.Setenv("SMTP_PORT", "465")
		t.Setenv("MAIL_ATTACH_ICS", "false")

		var config ServiceConfig
		cmd := newTestCommand(&config)
		require.NoError(t, cmd.ParseFlags(nil))
		require.NoError(t, applyEnv(cmd, serviceEnvBindings))

		assert.Equal(t, "env-client", config.Google.ClientID)
		assert.Equal(t, 45*time.Minute, config.Meeting.Duration)
		assert.Equal(t, 465, config.Mail.SMTPPort)
		assert.False(t, config.Mail.AttachICS)
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("MEETING_TIMEZONE", "Europe/Berlin")

		var config ServiceConfig
		cmd := newTestCommand(&config)
		require.NoError(t, cmd.ParseFlags([]string{"--timezone", "Asia/Kolkata"}))
		require.NoError(t, applyEnv(cmd, serviceEnvBindings))

		assert.Equal(t, "Asia/Kolkata", config.Meeting.Timezone)
	})

	t.Run("first variable wins", func(t *testing.T) {
		t.Setenv("G_CLIENT_SECRET", "primary-secret")
		t.Setenv("GOOGLE_CLIENT_SECRET", "fallback-secret")

		var config ServiceConfig
		cmd := newTestCommand(&config)
		require.NoError(t, cmd.ParseFlags(nil))
		require.NoError(t, applyEnv(cmd, serviceEnvBindings))

		assert.Equal(t, "primary-secret", config.Google.ClientSecret)
	})

	t.Run("malformed values name the variable", func(t *testing.T) {
		t.Setenv("MEETING_DURATION", "soon")
		t.Setenv("SMTP_PORT", "smtp")

		var config ServiceConfig
		cmd := newTestCommand(&config)
		require.NoError(t, cmd.ParseFlags(nil))
		err := applyEnv(cmd, serviceEnvBindings)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "MEETING_DURATION")
		assert.Contains(t, err.Error(), "SMTP_PORT")
	})

	t.Run("defaults without env", func(t *testing.T) {
		var config ServiceConfig
		cmd := newTestCommand(&config)
		require.NoError(t, cmd.ParseFlags(nil))

		assert.Equal(t, "UTC", config.Meeting.Timezone)
		assert.Equal(t, scheduling.DefaultDuration, config.Meeting.Duration)
		assert.Equal(t, scheduling.DefaultCalendarID, config.Meeting.CalendarID)
		assert.Equal(t, mail.TransportSMTP, config.Mail.Transport)
		assert.True(t, config.Metrics.Enabled)
	})
}

func TestResolveHTTPAddr(t *testing.T) {
	t.Run("port env", func(t *testing.T) {
		t.Setenv("PORT", "8081")
		cmd := newServeCmd()
		require.NoError(t, cmd.ParseFlags(nil))
		assert.Equal(t, ":8081", resolveHTTPAddr(cmd, ":5001"))
	})

	t.Run("flag wins over port", func(t *testing.T) {
		t.Setenv("PORT", "8081")
		cmd := newServeCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--http-addr", "127.0.0.1:7000"}))
		assert.Equal(t, "127.0.0.1:7000", resolveHTTPAddr(cmd, "127.0.0.1:7000"))
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("PORT", "")
		cmd := newServeCmd()
		require.NoError(t, cmd.ParseFlags(nil))
		assert.Equal(t, ":5001", resolveHTTPAddr(cmd, ":5001"))
	})
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ServiceConfig)
		wantErr string
	}{
		{name: "valid"},
		{
			name:    "missing client id",
			mutate:  func(c *ServiceConfig) { c.Google.ClientID = "" },
			wantErr: "client ID is required",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *ServiceConfig) { c.Meeting.Timezone = "Mars/Olympus" },
			wantErr: "invalid timezone",
		},
		{
			name:    "zero duration",
			mutate:  func(c *ServiceConfig) { c.Meeting.Duration = 0 },
			wantErr: "meeting duration must be positive",
		},
		{
			name:    "unknown idempotency mode",
			mutate:  func(c *ServiceConfig) { c.Meeting.IdempotencyMode = "sometimes" },
			wantErr: "unknown idempotency mode",
		},
		{
			name:    "zero provider timeout",
			mutate:  func(c *ServiceConfig) { c.Meeting.ProviderTimeout = 0 },
			wantErr: "provider timeout must be positive",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *ServiceConfig) { c.Mail.Transport = "pigeon" },
			wantErr: "unknown mail transport",
		},
		{
			name:    "missing sender",
			mutate:  func(c *ServiceConfig) { c.Mail.From = "" },
			wantErr: "sender address is required",
		},
		{
			name:    "invalid sender",
			mutate:  func(c *ServiceConfig) { c.Mail.From = "not an address" },
			wantErr: "invalid sender address",
		},
		{
			name:    "missing smtp password",
			mutate:  func(c *ServiceConfig) { c.Mail.SMTPPass = "" },
			wantErr: "SMTP password is required",
		},
		{
			name: "log transport needs no sender",
			mutate: func(c *ServiceConfig) {
				c.Mail.Transport = mail.TransportLog
				c.Mail.From = ""
				c.Mail.SMTPPass = ""
			},
		},
		{
			name: "ses needs no smtp password",
			mutate: func(c *ServiceConfig) {
				c.Mail.Transport = mail.TransportSES
				c.Mail.SMTPPass = ""
			},
		},
		{
			name:    "unknown log level",
			mutate:  func(c *ServiceConfig) { c.LogLevel = "loud" },
			wantErr: "unknown log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			if tt.mutate != nil {
				tt.mutate(&config)
			}
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServiceConfig_ValidateAggregates(t *testing.T) {
	err := (&ServiceConfig{}).Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "client ID is required")
	assert.Contains(t, msg, "client secret is required")
	assert.Contains(t, msg, "provider timeout must be positive")
	assert.Contains(t, msg, "unknown mail transport")
}

func TestServiceConfig_Policy(t *testing.T) {
	config := validConfig()
	config.Meeting.IdempotencyMode = "derived"
	config.Meeting.Duration = time.Hour
	config.Meeting.CalendarID = "bookings@group.calendar.google.com"

	policy, err := config.Policy()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", policy.Location.String())
	assert.Equal(t, time.Hour, policy.Duration)
	assert.Equal(t, "bookings@group.calendar.google.com", policy.CalendarID)
	assert.Equal(t, scheduling.IdempotencyDerived, policy.IdempotencyMode)
	assert.Equal(t, 30*time.Second, policy.CallTimeout)
	assert.Equal(t, scheduling.DefaultSummaryFormat, policy.SummaryFormat)
}

func TestServiceConfig_Sender(t *testing.T) {
	config := validConfig()
	config.Mail.From = "Bookings <bookings@example.com>"

	from := config.sender()
	assert.Equal(t, "bookings@example.com", from.Address)
	assert.Equal(t, "Meeting Scheduler", from.Name)
}

func TestServiceConfig_TokenStore(t *testing.T) {
	config := validConfig()
	config.Google.TokenFile = filepath.Join(t.TempDir(), "google.token")

	_, err := config.tokenStore().Load()
	assert.Error(t, err, "no token configured")

	config.Google.RefreshToken = "refresh"
	tok, err := config.tokenStore().Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh", tok.RefreshToken)
}

func TestNewService(t *testing.T) {
	config := validConfig()
	config.Google.TokenFile = filepath.Join(t.TempDir(), "google.token")
	config.Mail.Transport = mail.TransportLog

	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	svc, err := newService(context.Background(), &config, provider, instrumentation.AuditLoggingConfig{}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, mail.TransportLog, svc.transport.Name())
	assert.False(t, svc.credentials.HasToken())
	assert.NotNil(t, svc.calendar)
	assert.NotNil(t, svc.scheduler)
	assert.Equal(t, "Europe/Berlin", svc.policy.Location.String())
	assert.Contains(t, svc.oauth.Scopes, "https://www.googleapis.com/auth/calendar.events")
}

func TestNewService_InvalidRequestNeverReachesProviders(t *testing.T) {
	config := validConfig()
	config.Google.TokenFile = filepath.Join(t.TempDir(), "google.token")
	config.Mail.Transport = mail.TransportLog

	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	svc, err := newService(context.Background(), &config, provider, instrumentation.AuditLoggingConfig{}, discardLogger())
	require.NoError(t, err)

	outcome := svc.scheduler.Schedule(context.Background(), instrumentation.SourceCLI, scheduling.RawRequest{
		Name:     "Ada",
		Email:    "not-an-email",
		DateTime: "2025-03-10T14:00:00Z",
	})
	assert.Equal(t, scheduling.KindClientError, outcome.Kind())
}

func TestServeCmd_DocumentsCallbackState(t *testing.T) {
	cmd := newServeCmd()
	assert.Contains(t, cmd.Long, "invalid_state")
	assert.Contains(t, cmd.Long, "meetingbooker auth")
}

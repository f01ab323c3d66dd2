package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	netmail "net/mail"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/meetingbooker/internal/calendar"
	"github.com/teemow/meetingbooker/internal/google"
	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
	"github.com/teemow/meetingbooker/internal/mail"
	"github.com/teemow/meetingbooker/internal/notify"
	"github.com/teemow/meetingbooker/internal/scheduling"
)

// GoogleConfig holds the OAuth client and the service identity's tokens.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AccessToken  string
	RefreshToken string
	// TokenFile persists tokens obtained through the auth flow.
	TokenFile string
}

// MeetingConfig holds the scheduling policy settings.
type MeetingConfig struct {
	Timezone        string
	Duration        time.Duration
	CalendarID      string
	IdempotencyMode string
	ProviderTimeout time.Duration
}

// MailConfig selects and configures the confirmation mail transport.
type MailConfig struct {
	// Transport is one of smtp, gmail, ses or log.
	Transport  string
	From       string
	SenderName string
	ReplyTo    string
	AttachICS  bool
	Signature  string
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	AWSRegion  string
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServiceConfig is the complete configuration shared by serve, schedule and mcp.
type ServiceConfig struct {
	Google  GoogleConfig
	Meeting MeetingConfig
	Mail    MailConfig
	Metrics MetricsConfig

	LogFormat string
	LogLevel  string
}

// envBinding maps a flag to the environment variables consulted, in order,
// when the flag was not given on the command line.
type envBinding struct {
	flag string
	env  []string
}

var serviceEnvBindings = []envBinding{
	{"google-client-id", []string{"G_CLIENT_ID", "GOOGLE_CLIENT_ID"}},
	{"google-client-secret", []string{"G_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"}},
	{"google-redirect-uri", []string{"G_REDIRECT_URI"}},
	{"google-access-token", []string{"G_ACCESS_TOKEN"}},
	{"google-refresh-token", []string{"G_REFRESH_TOKEN"}},
	{"token-file", []string{"TOKEN_FILE"}},
	{"timezone", []string{"MEETING_TIMEZONE"}},
	{"duration", []string{"MEETING_DURATION"}},
	{"calendar-id", []string{"MEETING_CALENDAR_ID"}},
	{"idempotency", []string{"IDEMPOTENCY_MODE"}},
	{"provider-timeout", []string{"PROVIDER_TIMEOUT"}},
	{"mail-transport", []string{"MAIL_TRANSPORT"}},
	{"mail-from", []string{"G_MAIL"}},
	{"mail-sender-name", []string{"MAIL_SENDER_NAME"}},
	{"mail-reply-to", []string{"MAIL_REPLY_TO"}},
	{"mail-attach-ics", []string{"MAIL_ATTACH_ICS"}},
	{"mail-signature", []string{"MAIL_SIGNATURE"}},
	{"smtp-host", []string{"SMTP_HOST"}},
	{"smtp-port", []string{"SMTP_PORT"}},
	{"smtp-user", []string{"SMTP_USER"}},
	{"smtp-pass", []string{"SMTP_PASS"}},
	{"aws-region", []string{"AWS_REGION"}},
	{"metrics-enabled", []string{"METRICS_ENABLED"}},
	{"metrics-addr", []string{"METRICS_ADDR"}},
	{"log-format", []string{"LOG_FORMAT"}},
	{"log-level", []string{"LOG_LEVEL"}},
}

// addServiceFlags registers the flags backing c on cmd.
func addServiceFlags(cmd *cobra.Command, c *ServiceConfig) {
	f := cmd.Flags()

	f.StringVar(&c.Google.ClientID, "google-client-id", "", "Google OAuth client ID. Can also use G_CLIENT_ID env var.")
	f.StringVar(&c.Google.ClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use G_CLIENT_SECRET env var.")
	f.StringVar(&c.Google.RedirectURL, "google-redirect-uri", "", "OAuth redirect URI, e.g. http://localhost:5001/oauth2callback. Can also use G_REDIRECT_URI env var.")
	f.StringVar(&c.Google.AccessToken, "google-access-token", "", "Initial Google access token. Can also use G_ACCESS_TOKEN env var.")
	f.StringVar(&c.Google.RefreshToken, "google-refresh-token", "", "Google refresh token of the service identity. Can also use G_REFRESH_TOKEN env var.")
	f.StringVar(&c.Google.TokenFile, "token-file", google.DefaultTokenFile(), "File storing tokens obtained through the auth flow. Can also use TOKEN_FILE env var.")

	f.StringVar(&c.Meeting.Timezone, "timezone", "UTC", "IANA timezone of created events and of dateTime values without offset. Can also use MEETING_TIMEZONE env var.")
	f.DurationVar(&c.Meeting.Duration, "duration", scheduling.DefaultDuration, "Meeting length. Can also use MEETING_DURATION env var.")
	f.StringVar(&c.Meeting.CalendarID, "calendar-id", scheduling.DefaultCalendarID, "Calendar receiving the events. Can also use MEETING_CALENDAR_ID env var.")
	f.StringVar(&c.Meeting.IdempotencyMode, "idempotency", string(scheduling.IdempotencyRandom), "Conference request id mode: random or derived. Can also use IDEMPOTENCY_MODE env var.")
	f.DurationVar(&c.Meeting.ProviderTimeout, "provider-timeout", scheduling.DefaultCallTimeout, "Timeout of each calendar and mail call. Can also use PROVIDER_TIMEOUT env var.")

	f.StringVar(&c.Mail.Transport, "mail-transport", mail.TransportSMTP, "Confirmation transport: smtp, gmail, ses or log. Can also use MAIL_TRANSPORT env var.")
	f.StringVar(&c.Mail.From, "mail-from", "", "Sender address of confirmations. Can also use G_MAIL env var.")
	f.StringVar(&c.Mail.SenderName, "mail-sender-name", notify.DefaultSenderName, "Sender display name. Can also use MAIL_SENDER_NAME env var.")
	f.StringVar(&c.Mail.ReplyTo, "mail-reply-to", "", "Reply-To address of confirmations. Can also use MAIL_REPLY_TO env var.")
	f.BoolVar(&c.Mail.AttachICS, "mail-attach-ics", true, "Attach an invite.ics to confirmations. Can also use MAIL_ATTACH_ICS env var.")
	f.StringVar(&c.Mail.Signature, "mail-signature", notify.DefaultSignature, "Closing line of confirmations. Can also use MAIL_SIGNATURE env var.")
	f.StringVar(&c.Mail.SMTPHost, "smtp-host", mail.DefaultSMTPHost, "SMTP relay host. Can also use SMTP_HOST env var.")
	f.IntVar(&c.Mail.SMTPPort, "smtp-port", mail.DefaultSMTPPort, "SMTP relay port; 465 uses implicit TLS. Can also use SMTP_PORT env var.")
	f.StringVar(&c.Mail.SMTPUser, "smtp-user", "", "SMTP user name, defaults to the sender address. Can also use SMTP_USER env var.")
	f.StringVar(&c.Mail.SMTPPass, "smtp-pass", "", "SMTP password or app password. Can also use SMTP_PASS env var.")
	f.StringVar(&c.Mail.AWSRegion, "aws-region", "", "AWS region of the SES transport. Can also use AWS_REGION env var.")

	f.BoolVar(&c.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	f.StringVar(&c.Metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	f.StringVar(&c.LogFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	f.StringVar(&c.LogLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
}

// applyEnv sets every flag of bindings that was not given on the command line
// from the first non-empty environment variable. Values are parsed by the flag,
// so a malformed duration or port is reported against its variable.
func applyEnv(cmd *cobra.Command, bindings []envBinding) error {
	var errs []error
	for _, b := range bindings {
		if cmd.Flags().Lookup(b.flag) == nil || cmd.Flags().Changed(b.flag) {
			continue
		}
		for _, name := range b.env {
			v := strings.TrimSpace(os.Getenv(name))
			if v == "" {
				continue
			}
			if err := cmd.Flags().Set(b.flag, v); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
			}
			break
		}
	}
	return errors.Join(errs...)
}

// Validate reports every missing or invalid setting at once.
func (c *ServiceConfig) Validate() error {
	var errs []error

	if err := c.clientConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("google: %w", err))
	}

	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}

	switch c.Mail.Transport {
	case mail.TransportSMTP, mail.TransportGmail, mail.TransportSES, mail.TransportLog:
	default:
		errs = append(errs, fmt.Errorf("unknown mail transport %q (want smtp, gmail, ses or log)", c.Mail.Transport))
	}
	if c.Mail.Transport != mail.TransportLog {
		if c.Mail.From == "" {
			errs = append(errs, errors.New("sender address is required (--mail-from or G_MAIL)"))
		}
	}
	if c.Mail.From != "" {
		if _, err := netmail.ParseAddress(c.Mail.From); err != nil {
			errs = append(errs, fmt.Errorf("invalid sender address %q: %w", c.Mail.From, err))
		}
	}
	if c.Mail.ReplyTo != "" {
		if _, err := netmail.ParseAddress(c.Mail.ReplyTo); err != nil {
			errs = append(errs, fmt.Errorf("invalid reply-to address %q: %w", c.Mail.ReplyTo, err))
		}
	}
	if c.Mail.Transport == mail.TransportSMTP {
		if c.Mail.SMTPPass == "" {
			errs = append(errs, errors.New("SMTP password is required (--smtp-pass or SMTP_PASS)"))
		}
		if c.Mail.SMTPPort <= 0 || c.Mail.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("invalid SMTP port %d", c.Mail.SMTPPort))
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Policy builds the scheduling policy from the meeting settings.
func (c *ServiceConfig) Policy() (scheduling.Policy, error) {
	policy := scheduling.DefaultPolicy()

	var errs []error
	loc, err := time.LoadLocation(c.Meeting.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Meeting.Timezone, err))
	} else {
		policy.Location = loc
	}
	mode, err := scheduling.ParseIdempotencyMode(c.Meeting.IdempotencyMode)
	if err != nil {
		errs = append(errs, err)
	} else {
		policy.IdempotencyMode = mode
	}
	policy.CalendarID = c.Meeting.CalendarID
	policy.Duration = c.Meeting.Duration
	policy.CallTimeout = c.Meeting.ProviderTimeout
	if c.Meeting.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("provider timeout must be positive, got %s", c.Meeting.ProviderTimeout))
	}
	if len(errs) == 0 {
		if err := policy.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return scheduling.Policy{}, fmt.Errorf("meeting: %w", errors.Join(errs...))
	}
	return policy, nil
}

func (c *ServiceConfig) clientConfig() google.ClientConfig {
	return google.ClientConfig{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
		Scopes:       google.Scopes(c.Mail.Transport == mail.TransportGmail),
	}
}

// tokenStore reads tokens from the token file first and from the configured
// pair second. Refreshed and newly authorized tokens go to the file.
func (c *ServiceConfig) tokenStore() google.TokenStore {
	chain := google.ChainTokenStore{google.NewFileTokenStore(c.Google.TokenFile)}
	if c.Google.AccessToken != "" || c.Google.RefreshToken != "" {
		chain = append(chain, &google.EnvTokenStore{
			AccessToken:  c.Google.AccessToken,
			RefreshToken: c.Google.RefreshToken,
		})
	}
	return chain
}

// sender returns the From address of confirmations.
func (c *ServiceConfig) sender() netmail.Address {
	from := c.Mail.From
	if from == "" {
		from = "meetingbooker@localhost"
	}
	if addr, err := netmail.ParseAddress(from); err == nil {
		from = addr.Address
	}
	return netmail.Address{Name: c.Mail.SenderName, Address: from}
}

// service bundles the collaborators built from a ServiceConfig.
type service struct {
	policy      scheduling.Policy
	oauth       *oauth2.Config
	credentials *google.CredentialStore
	calendar    *calendar.Client
	transport   mail.Transport
	scheduler   *scheduling.Orchestrator
}

// newService constructs the provider clients once and wires the orchestrator.
func newService(ctx context.Context, c *ServiceConfig, provider *instrumentation.Provider, auditConfig instrumentation.AuditLoggingConfig, logger *slog.Logger) (*service, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	metrics := provider.Metrics()

	oauthConfig := c.clientConfig().OAuthConfig()
	credentials, err := google.NewCredentialStore(oauthConfig, c.tokenStore(),
		google.WithLogger(logger),
		google.WithMetrics(metrics),
		google.WithRefreshTimeout(c.Meeting.ProviderTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	httpClient := google.NewHTTPClient(credentials, c.Meeting.ProviderTimeout)
	calendarClient, err := calendar.NewClient(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	calendarClient.SetMetrics(metrics)

	transport, err := c.newTransport(ctx, httpClient, logger)
	if err != nil {
		return nil, err
	}
	transport = mail.NewInstrumented(transport, metrics, logger)

	notifyConfig := notify.Config{
		From:      c.sender(),
		Location:  policy.Location,
		AttachICS: c.Mail.AttachICS,
		Signature: c.Mail.Signature,
	}
	if c.Mail.ReplyTo != "" {
		replyTo, err := netmail.ParseAddress(c.Mail.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
		notifyConfig.ReplyTo = replyTo
	}
	notifier, err := notify.NewNotifier(transport, notifyConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	creator := scheduling.NewCalendarEventCreator(calendarClient, policy, logger)
	scheduler := scheduling.NewOrchestrator(creator, notifier, policy,
		scheduling.WithLogger(logger),
		scheduling.WithMetrics(metrics),
		scheduling.WithAuditLogger(instrumentation.NewAuditLogger(logger, auditConfig)),
	)

	return &service{
		policy:      policy,
		oauth:       oauthConfig,
		credentials: credentials,
		calendar:    calendarClient,
		transport:   transport,
		scheduler:   scheduler,
	}, nil
}

func (c *ServiceConfig) newTransport(ctx context.Context, httpClient *http.Client, logger *slog.Logger) (mail.Transport, error) {
	switch c.Mail.Transport {
	case mail.TransportSMTP:
		user := c.Mail.SMTPUser
		if user == "" {
			user = c.sender().Address
		}
		return &mail.SMTPTransport{
			Host:       c.Mail.SMTPHost,
			Port:       c.Mail.SMTPPort,
			Username:   user,
			Password:   c.Mail.SMTPPass,
			Timeout:    c.Meeting.ProviderTimeout,
			RequireTLS: true,
		}, nil
	case mail.TransportGmail:
		return mail.NewGmailTransport(ctx, httpClient)
	case mail.TransportSES:
		return mail.NewSESTransportFromEnv(ctx, c.Mail.AWSRegion)
	case mail.TransportLog:
		return &mail.LogTransport{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", c.Mail.Transport)
	}
}

// newInstrumentation creates the OpenTelemetry provider. Callers must Shutdown it.
func newInstrumentation(ctx context.Context) (*instrumentation.Provider, instrumentation.Config, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return nil, instrConfig, fmt.Errorf("invalid instrumentation config: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, instrConfig, nil
}

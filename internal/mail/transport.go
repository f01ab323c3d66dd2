package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
)

// Transport names.
const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
	TransportSES   = "ses"
	TransportLog   = "log"
)

// Transport delivers a message and returns the provider's message id.
type Transport interface {
	Send(ctx context.Context, msg *Message) (string, error)
	Name() string
}

// TransportError is returned when a transport fails to hand a message off.
type TransportError struct {
	Transport string
	// Code is a provider-specific error code or SMTP reply code, if known.
	Code string
	// Temporary is true when a later attempt could succeed (throttling, outages).
	Temporary bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s transport failed (%s): %v", e.Transport, e.Code, e.Err)
	}
	return fmt.Sprintf("%s transport failed: %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTemporary reports whether err is a temporary transport failure.
func IsTemporary(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Temporary
}

// Instrumented wraps a transport with tracing, metrics and logging.
type Instrumented struct {
	next    Transport
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewInstrumented wraps next. metrics may be nil.
func NewInstrumented(next Transport, metrics *instrumentation.Metrics, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{
		next:    next,
		metrics: metrics,
		logger:  logging.WithComponent(logger, "mail").With(logging.Transport(next.Name())),
	}
}

func (t *Instrumented) Name() string { return t.next.Name() }

func (t *Instrumented) Send(ctx context.Context, msg *Message) (string, error) {
	ctx, span := instrumentation.StartMailSpan(ctx, t.next.Name())
	defer span.End()
	start := time.Now()

	id, err := t.next.Send(ctx, msg)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	t.metrics.RecordProviderOperation(ctx, instrumentation.ProviderMail, instrumentation.OperationSend, status, duration)
	t.metrics.RecordNotification(ctx, t.next.Name(), status)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		t.logger.Warn("mail delivery failed",
			logging.Err(err),
			slog.Bool("temporary", IsTemporary(err)),
			slog.Duration(logging.KeyDuration, duration))
		return "", err
	}

	instrumentation.SetSpanSuccess(span)
	t.logger.Debug("mail delivered", slog.String("message_id", id), slog.Duration(logging.KeyDuration, duration))
	return id, nil
}

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct {
	Logger *slog.Logger
}

func (t *LogTransport) Name() string { return TransportLog }

func (t *LogTransport) Send(_ context.Context, msg *Message) (string, error) {
	enc, err := Build(msg)
	if err != nil {
		return "", &TransportError{Transport: TransportLog, Err: err}
	}

	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail not sent, log transport active",
		slog.String("message_id", enc.MessageID),
		slog.String("subject", msg.Subject),
		slog.Int("recipients", len(msg.To)),
		slog.Int("size", len(enc.Raw)))
	return enc.MessageID, nil
}

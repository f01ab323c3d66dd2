package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/meetingbooker/internal/logging"
)

// SchedulingAttempt captures one pass through the scheduling orchestrator
// for the audit log.
//
// AttendeeEmail is PII. It is only written verbatim when the audit logger
// is configured with IncludePII; otherwise a hash and the domain are logged.
type SchedulingAttempt struct {
	Source        string
	AttendeeEmail string
	MeetingStart  time.Time

	Outcome  string
	Reason   string
	EventID  string
	Notified bool

	StartTime time.Time
	Duration  time.Duration
	TraceID   string
}

// NewSchedulingAttempt starts timing an attempt coming from source.
func NewSchedulingAttempt(source string) *SchedulingAttempt {
	return &SchedulingAttempt{
		Source:    source,
		StartTime: time.Now(),
	}
}

// WithSpanContext copies the trace id of the current span.
func (a *SchedulingAttempt) WithSpanContext(ctx context.Context) *SchedulingAttempt {
	a.TraceID = GetTraceID(ctx)
	return a
}

// Complete stops the timer and records the classified result.
func (a *SchedulingAttempt) Complete(outcome, reason string) *SchedulingAttempt {
	a.Duration = time.Since(a.StartTime)
	a.Outcome = outcome
	a.Reason = reason
	return a
}

func (a *SchedulingAttempt) attrs(includePII bool) []any {
	args := []any{
		slog.String("source", a.Source),
		logging.Outcome(a.Outcome),
		slog.Duration("duration", a.Duration),
		slog.Bool("notified", a.Notified),
	}

	if includePII {
		args = append(args, slog.String("attendee", a.AttendeeEmail))
	} else if a.AttendeeEmail != "" {
		args = append(args, logging.UserHash(a.AttendeeEmail), logging.Domain(a.AttendeeEmail))
	}
	if !a.MeetingStart.IsZero() {
		args = append(args, slog.Time("meeting_start", a.MeetingStart))
	}
	if a.EventID != "" {
		args = append(args, logging.EventID(a.EventID))
	}
	if a.Reason != "" {
		args = append(args, logging.Reason(a.Reason))
	}
	if a.TraceID != "" {
		args = append(args, slog.String("trace_id", a.TraceID))
	}
	return args
}

// AuditLogger writes one structured line per scheduling attempt.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("log_type", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogSchedulingAttempt logs the attempt. A nil AuditLogger is a no-op.
// Attempts that did not create an event are logged at WARN.
func (al *AuditLogger) LogSchedulingAttempt(a *SchedulingAttempt) {
	if al == nil || !al.enabled || a == nil {
		return
	}

	if a.EventID == "" {
		al.logger.Warn("scheduling_attempt", a.attrs(al.includePII)...)
		return
	}
	al.logger.Info("scheduling_attempt", a.attrs(al.includePII)...)
}

package scheduling

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
)

// Notifier sends the confirmation for a created event. It reports whether the
// message was handed off and never returns an error.
type Notifier interface {
	SendConfirmation(ctx context.Context, req MeetingRequest, event EventResult) bool
}

// Orchestrator sequences event creation and notification.
type Orchestrator struct {
	creator  EventCreator
	notifier Notifier
	policy   Policy

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records scheduling outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAuditLogger writes one audit line per attempt.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// NewOrchestrator creates an orchestrator. policy supplies the timezone used
// for parsing and the per-step timeout.
func NewOrchestrator(creator EventCreator, notifier Notifier, policy Policy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		creator:  creator,
		notifier: notifier,
		policy:   policy,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.WithComponent(o.logger, "orchestrator")
	return o
}

// Schedule validates raw, creates the event and sends the confirmation.
// source names the surface the request came from (http, mcp, cli).
func (o *Orchestrator) Schedule(ctx context.Context, source string, raw RawRequest) Outcome {
	ctx, span := instrumentation.StartScheduleSpan(ctx, source)
	defer span.End()

	attempt := instrumentation.NewSchedulingAttempt(source).WithSpanContext(ctx)
	attempt.AttendeeEmail = raw.Email

	outcome := o.schedule(ctx, raw, attempt)

	attempt.Complete(outcome.Label(), outcome.Reason())
	o.audit.LogSchedulingAttempt(attempt)
	o.metrics.RecordSchedulingOutcome(ctx, source, outcome.Label(), outcome.Reason(), attempt.AttendeeEmail, attempt.Duration)

	if err := outcome.Err(); err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return outcome
}

func (o *Orchestrator) schedule(ctx context.Context, raw RawRequest, attempt *instrumentation.SchedulingAttempt) Outcome {
	logger := o.logger.With(logging.UserHash(raw.Email))

	req, err := ParseRequest(raw, o.policy.location())
	if err != nil {
		var inputErr *ClientInputError
		if !errors.As(err, &inputErr) {
			inputErr = NewClientInputError("body", err.Error())
		}
		logger.InfoContext(ctx, "rejected scheduling request", logging.Err(err))
		return ClientError(inputErr)
	}
	attempt.AttendeeEmail = req.AttendeeEmail
	attempt.MeetingStart = req.Start

	createCtx, cancel := o.stepContext(ctx)
	event, err := o.creator.CreateEvent(createCtx, req)
	cancel()
	if err != nil {
		pe := NewProviderError(err)
		logger.ErrorContext(ctx, "failed to create calendar event",
			logging.Reason(pe.Reason), logging.Err(err))
		return HardFailure(pe)
	}
	attempt.EventID = event.EventID
	logger = logger.With(logging.EventID(event.EventID))
	logger.InfoContext(ctx, "calendar event created", slog.Bool("has_join_link", event.JoinLink != ""))

	// The event exists now, so the confirmation is sent even if the caller
	// goes away.
	notifyCtx, cancel := o.stepContext(context.WithoutCancel(ctx))
	notified := o.notifier.SendConfirmation(notifyCtx, req, event)
	cancel()
	attempt.Notified = notified
	if !notified {
		logger.WarnContext(ctx, "meeting scheduled but confirmation email failed")
	}
	return Success(event, notified)
}

func (o *Orchestrator) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.policy.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.policy.CallTimeout)
}

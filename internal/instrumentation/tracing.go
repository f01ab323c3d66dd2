package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for all spans of this module.
const TracerName = "github.com/teemow/meetingbooker"

// Span attribute keys.
const (
	SpanAttrSource     = "meeting.source"
	SpanAttrOutcome    = "meeting.outcome"
	SpanAttrReason     = "meeting.reason"
	SpanAttrEventID    = "meeting.event_id"
	SpanAttrNotified   = "meeting.notified"
	SpanAttrProvider   = "provider.name"
	SpanAttrOperation  = "provider.operation"
	SpanAttrTransport  = "mail.transport"
	SpanAttrCalendarID = "calendar.id"
	SpanAttrTool       = "mcp.tool"
)

// StartSpan starts a new span with the given name and attributes.
// The caller must end the span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartScheduleSpan starts the root span of a scheduling attempt.
func StartScheduleSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "schedule",
		trace.WithAttributes(attribute.String(SpanAttrSource, source)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCalendarSpan starts a client span for a Google Calendar call,
// named google.calendar.<operation>.
func StartCalendarSpan(ctx context.Context, operation, calendarID string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "google.calendar."+operation,
		trace.WithAttributes(
			attribute.String(SpanAttrProvider, ProviderCalendar),
			attribute.String(SpanAttrOperation, operation),
			attribute.String(SpanAttrCalendarID, calendarID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartMailSpan starts a client span for sending mail, named mail.<transport>.send.
func StartMailSpan(ctx context.Context, transport string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "mail."+transport+".send",
		trace.WithAttributes(
			attribute.String(SpanAttrProvider, ProviderMail),
			attribute.String(SpanAttrTransport, transport),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartToolSpan starts a span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(attribute.String(SpanAttrTool, toolName)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

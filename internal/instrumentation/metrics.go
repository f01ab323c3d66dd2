package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrProvider  = "provider"
	attrOperation = "operation"
	attrOutcome   = "outcome"
	attrReason    = "reason"
	attrSource    = "source"
	attrTransport = "transport"
	attrResult    = "result"
	attrTool      = "tool"
	attrDomain    = "attendee_domain"
)

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics records the service's metrics. The zero value is a no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	providerOperationsTotal   metric.Int64Counter
	providerOperationDuration metric.Float64Histogram

	schedulingOutcomesTotal metric.Int64Counter
	schedulingDuration      metric.Float64Histogram
	notificationsTotal      metric.Int64Counter

	oauthExchangeTotal     metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates all instruments on the given meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create %s counter: %w", name, err)
		}
		return c
	}
	histogram := func(name, desc string, buckets []float64) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		if err != nil {
			err = fmt.Errorf("failed to create %s histogram: %w", name, err)
		}
		return h
	}

	m.httpRequestsTotal = counter("http_requests_total", "Total number of HTTP requests", "{request}")
	m.httpRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds",
		[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})

	m.providerOperationsTotal = counter("provider_operations_total", "Total number of calendar and mail provider operations", "{operation}")
	m.providerOperationDuration = histogram("provider_operation_duration_seconds", "Provider operation duration in seconds", latencyBuckets)

	m.schedulingOutcomesTotal = counter("scheduling_outcomes_total", "Total number of scheduling attempts by outcome", "{attempt}")
	m.schedulingDuration = histogram("scheduling_duration_seconds", "End-to-end scheduling duration in seconds", latencyBuckets)
	m.notificationsTotal = counter("notifications_total", "Total number of confirmation emails by transport and status", "{email}")

	m.oauthExchangeTotal = counter("oauth_code_exchange_total", "Total number of OAuth authorization code exchanges", "{attempt}")
	m.oauthTokenRefreshTotal = counter("oauth_token_refresh_total", "Total number of OAuth token refresh attempts", "{attempt}")

	m.toolInvocationsTotal = counter("mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}")
	m.toolDuration = histogram("mcp_tool_duration_seconds", "MCP tool execution duration in seconds", latencyBuckets)

	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, NormalizePath(path)),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordProviderOperation records a call to an external provider.
//
// Parameters:
//   - provider: ProviderCalendar or ProviderMail
//   - operation: OperationInsert, OperationGet or OperationSend
//   - status: StatusSuccess or StatusError
func (m *Metrics) RecordProviderOperation(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m == nil || m.providerOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.providerOperationsTotal.Add(ctx, 1, attrs)
	m.providerOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSchedulingOutcome records a completed scheduling attempt.
// reason is empty for successful outcomes. attendeeEmail is only used when
// detailed labels are enabled, and then only its domain.
func (m *Metrics) RecordSchedulingOutcome(ctx context.Context, source, outcome, reason, attendeeEmail string, duration time.Duration) {
	if m == nil || m.schedulingOutcomesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrSource, source),
		attribute.String(attrOutcome, outcome),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(attrReason, reason))
	}
	if m.detailedLabels && attendeeEmail != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(attendeeEmail)))
	}

	m.schedulingOutcomesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.schedulingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordNotification records a confirmation email attempt.
func (m *Metrics) RecordNotification(ctx context.Context, transport, status string) {
	if m == nil || m.notificationsTotal == nil {
		return
	}

	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTransport, transport),
		attribute.String(attrStatus, status),
	))
}

// RecordOAuthExchange records an authorization code exchange.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthExchange(ctx context.Context, result string) {
	if m == nil || m.oauthExchangeTotal == nil {
		return
	}

	m.oauthExchangeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records an access token refresh.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

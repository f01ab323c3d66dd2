// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for meetingbooker.
//
// # Metrics
//
// HTTP:
//   - http_requests_total, http_request_duration_seconds (method, path, status)
//
// Providers:
//   - provider_operations_total, provider_operation_duration_seconds
//     (provider, operation, status)
//
// Scheduling:
//   - scheduling_outcomes_total, scheduling_duration_seconds (source, outcome, reason)
//   - notifications_total (transport, status)
//
// OAuth:
//   - oauth_code_exchange_total, oauth_token_refresh_total (result)
//
// MCP:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds (tool, status)
//
// # Tracing
//
// Spans are created for each scheduling attempt ("schedule"), calendar calls
// ("google.calendar.insert", "google.calendar.get") and outgoing mail
// ("mail.<transport>.send").
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordProviderOperation(ctx,
//		instrumentation.ProviderCalendar, instrumentation.OperationInsert,
//		instrumentation.StatusSuccess, time.Since(start))
package instrumentation

package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newPrometheusProvider(t *testing.T) *Provider {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func scrape(t *testing.T, p *Provider) string {
	t.Helper()

	handler := p.MetricsHandler()
	if handler == nil {
		t.Fatal("expected metrics handler for prometheus exporter")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	return string(body)
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service", Enabled: false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.MetricsHandler() != nil {
		t.Error("expected no metrics handler when disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected noop tracer")
	}

	// no-op recorder must not panic
	provider.Metrics().RecordNotification(context.Background(), "smtp", StatusSuccess)

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_Prometheus(t *testing.T) {
	provider := newPrometheusProvider(t)

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}

	ctx := context.Background()
	m := provider.Metrics()
	m.RecordHTTPRequest(ctx, http.MethodPost, "/schedule", 200, 120*time.Millisecond)
	m.RecordProviderOperation(ctx, ProviderCalendar, OperationInsert, StatusSuccess, 80*time.Millisecond)
	m.RecordSchedulingOutcome(ctx, SourceHTTP, "partial_success", "", "ada@example.com", time.Second)
	m.RecordNotification(ctx, "smtp", StatusError)
	m.RecordOAuthExchange(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
	m.RecordToolInvocation(ctx, "schedule_meeting", StatusSuccess, time.Second)

	body := scrape(t, provider)
	for _, name := range []string{
		"http_requests_total",
		"provider_operations_total",
		"scheduling_outcomes_total",
		"notifications_total",
		"oauth_code_exchange_total",
		"oauth_token_refresh_total",
		"mcp_tool_invocations_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected metric %s in scrape output", name)
		}
	}
	if strings.Contains(body, "attendee_domain") {
		t.Error("attendee domain must not be exported without detailed labels")
	}
}

func TestNewProvider_TwoInstancesDoNotConflict(t *testing.T) {
	first := newPrometheusProvider(t)
	second := newPrometheusProvider(t)

	first.Metrics().RecordNotification(context.Background(), "ses", StatusSuccess)

	if strings.Contains(scrape(t, second), `transport="ses"`) {
		t.Error("providers should not share a registry")
	}
}

func TestNewProvider_StdoutTracing(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:       "test-service",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1.0,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if provider.Tracer("test") == nil {
		t.Error("expected tracer")
	}
}

func TestNewProvider_InvalidExporters(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown metrics exporter", Config{Enabled: true, MetricsExporter: "statsd", TracingExporter: ExporterNone}},
		{"otlp metrics without endpoint", Config{Enabled: true, MetricsExporter: ExporterOTLP, TracingExporter: ExporterNone}},
		{"unknown tracing exporter", Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "jaeger"}},
		{"otlp tracing without endpoint", Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.ServiceName = "test-service"
			if _, err := NewProvider(context.Background(), tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}

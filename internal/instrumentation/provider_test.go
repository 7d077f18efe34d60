package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, enabled bool) *Provider {
	t.Helper()
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         enabled,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

func TestNewProvider_Disabled(t *testing.T) {
	provider := newTestProvider(t, false)

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.ServesPrometheus() {
		t.Error("disabled provider should not serve prometheus")
	}
	if provider.Metrics() == nil {
		t.Fatal("expected no-op metrics, got nil")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected a no-op tracer")
	}
}

func TestNewProvider_Prometheus(t *testing.T) {
	provider := newTestProvider(t, true)

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if !provider.ServesPrometheus() {
		t.Error("expected prometheus exporter")
	}
	if provider.AuditLogger() == nil {
		t.Error("expected audit logger")
	}
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, MetricsExporter: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for invalid exporter")
	}
}

func TestMetrics_RecordAll(t *testing.T) {
	ctx := context.Background()
	for _, enabled := range []bool{true, false} {
		metrics := newTestProvider(t, enabled).Metrics()

		// Must not panic whether or not instrumentation is enabled.
		metrics.RecordCalendarOperation(ctx, OperationList, StatusSuccess, 120*time.Millisecond)
		metrics.RecordCalendarOperation(ctx, OperationInsert, StatusError, 80*time.Millisecond)
		metrics.RecordToolCall(ctx, "check_calendar_availability", StatusSuccess, "biz-1", time.Second)
		metrics.RecordBooking(ctx, BookingBooked)
		metrics.RecordBooking(ctx, BookingConflict)
		metrics.RecordReauthMarked(ctx)
		metrics.RecordPersistenceFailure(ctx, "insert_calendar_event")
		metrics.AgentRunStarted(ctx)
		metrics.AgentRunFinished(ctx, "completed", 3*time.Second)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordBooking(ctx, BookingBooked)
}

func TestToolInvocation(t *testing.T) {
	ti := NewToolInvocation("create_calendar_event").
		WithBusiness("biz-1").
		WithSender("5215551234567", SourceAgent).
		WithSpanContext(context.Background())

	if ti.TraceID != "" {
		t.Errorf("expected empty trace id without a span, got %q", ti.TraceID)
	}

	ti.Complete(false, "slot taken", "conflict")
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want error", ti.Status())
	}
	if ti.Duration < 0 {
		t.Error("negative duration")
	}

	hashed := attrsToMap(ti.LogAttrs(false))
	if _, ok := hashed["sender"]; ok {
		t.Error("raw sender logged without PII opt-in")
	}
	if !strings.HasPrefix(hashed["sender_hash"], "phone:") {
		t.Errorf("expected hashed sender, got %q", hashed["sender_hash"])
	}
	if hashed["error_kind"] != "conflict" {
		t.Errorf("error_kind = %q", hashed["error_kind"])
	}

	raw := attrsToMap(ti.LogAttrs(true))
	if raw["sender"] != "5215551234567" {
		t.Errorf("expected raw sender with PII enabled, got %q", raw["sender"])
	}
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	al := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})
	al.LogToolInvocation(NewToolInvocation("get_business_hours").Complete(true, "", ""))
	al.LogToolInvocation(NewToolInvocation("delete_calendar_event").Complete(false, errors.New("gone").Error(), "external_provider"))

	out := buf.String()
	if !strings.Contains(out, "msg=tool_executed") || !strings.Contains(out, "msg=tool_failed") {
		t.Errorf("unexpected audit output: %s", out)
	}

	buf.Reset()
	NewAuditLogger(logger, AuditLoggingConfig{Enabled: false}).
		LogToolInvocation(NewToolInvocation("x").Complete(true, "", ""))
	if buf.Len() != 0 {
		t.Error("disabled audit logger wrote output")
	}

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation("x"))
}

func TestSpans(t *testing.T) {
	ctx := context.Background()

	ctx, span := StartToolSpan(ctx, "get_business_hours", "biz-1")
	SetSpanSuccess(span)
	span.End()

	_, span = StartCalendarSpan(ctx, OperationList, "primary")
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	_, span = StartAgentSpan(ctx, "create_run")
	span.End()

	if GetTraceID(context.Background()) != "" || GetSpanID(context.Background()) != "" {
		t.Error("expected empty ids without a span")
	}
}

func attrsToMap(attrs []slog.Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value.String()
	}
	return out
}

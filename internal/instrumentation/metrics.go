package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
	attrBusiness  = "business_id"
)

// Metrics records agendabot metrics. The zero value is a valid no-op recorder.
type Metrics struct {
	calendarOpsTotal    metric.Int64Counter
	calendarOpsDuration metric.Float64Histogram

	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram

	bookingsTotal            metric.Int64Counter
	reauthMarkedTotal        metric.Int64Counter
	persistenceFailuresTotal metric.Int64Counter

	agentRunsTotal    metric.Int64Counter
	agentRunDuration  metric.Float64Histogram
	agentRunsInFlight metric.Int64UpDownCounter

	detailedLabels bool
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}
	latency := metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0)

	var err error
	if m.calendarOpsTotal, err = meter.Int64Counter("calendar_api_operations_total",
		metric.WithDescription("Total number of calendar provider operations"),
		metric.WithUnit("{operation}")); err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operations_total counter: %w", err)
	}
	if m.calendarOpsDuration, err = meter.Float64Histogram("calendar_api_operation_duration_seconds",
		metric.WithDescription("Calendar provider operation duration in seconds"),
		metric.WithUnit("s"), latency); err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operation_duration_seconds histogram: %w", err)
	}

	if m.toolCallsTotal, err = meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of router operations invoked"),
		metric.WithUnit("{call}")); err != nil {
		return nil, fmt.Errorf("failed to create tool_calls_total counter: %w", err)
	}
	if m.toolCallDuration, err = meter.Float64Histogram("tool_call_duration_seconds",
		metric.WithDescription("Router operation duration in seconds"),
		metric.WithUnit("s"), latency); err != nil {
		return nil, fmt.Errorf("failed to create tool_call_duration_seconds histogram: %w", err)
	}

	if m.bookingsTotal, err = meter.Int64Counter("bookings_total",
		metric.WithDescription("Booking attempts by result"),
		metric.WithUnit("{booking}")); err != nil {
		return nil, fmt.Errorf("failed to create bookings_total counter: %w", err)
	}
	if m.reauthMarkedTotal, err = meter.Int64Counter("calendar_reauth_marked_total",
		metric.WithDescription("Calendar credentials flagged as needing re-authorization"),
		metric.WithUnit("{credential}")); err != nil {
		return nil, fmt.Errorf("failed to create calendar_reauth_marked_total counter: %w", err)
	}
	if m.persistenceFailuresTotal, err = meter.Int64Counter("persistence_failures_total",
		metric.WithDescription("Local store writes that failed after the calendar provider succeeded"),
		metric.WithUnit("{failure}")); err != nil {
		return nil, fmt.Errorf("failed to create persistence_failures_total counter: %w", err)
	}

	if m.agentRunsTotal, err = meter.Int64Counter("agent_runs_total",
		metric.WithDescription("Agent runs by final status"),
		metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("failed to create agent_runs_total counter: %w", err)
	}
	if m.agentRunDuration, err = meter.Float64Histogram("agent_run_duration_seconds",
		metric.WithDescription("Agent run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 30, 60, 120)); err != nil {
		return nil, fmt.Errorf("failed to create agent_run_duration_seconds histogram: %w", err)
	}
	if m.agentRunsInFlight, err = meter.Int64UpDownCounter("agent_runs_in_flight",
		metric.WithDescription("Agent runs currently being driven"),
		metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("failed to create agent_runs_in_flight gauge: %w", err)
	}

	return m, nil
}

// RecordCalendarOperation records one calendar provider call.
//
// Parameters:
//   - operation: list, insert or delete
//   - status: "success" or "error"
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.calendarOpsTotal == nil {
		return // Instrumentation not initialized
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.calendarOpsTotal.Add(ctx, 1, attrs)
	m.calendarOpsDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolCall records one router operation. The business id is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status, businessID string, duration time.Duration) {
	if m == nil || m.toolCallsTotal == nil {
		return // Instrumentation not initialized
	}
	kv := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && businessID != "" {
		kv = append(kv, attribute.String(attrBusiness, businessID))
	}
	attrs := metric.WithAttributes(kv...)
	m.toolCallsTotal.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBooking records the outcome of a booking attempt.
func (m *Metrics) RecordBooking(ctx context.Context, result string) {
	if m == nil || m.bookingsTotal == nil {
		return // Instrumentation not initialized
	}
	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordReauthMarked records a credential flagged for re-authorization.
func (m *Metrics) RecordReauthMarked(ctx context.Context) {
	if m == nil || m.reauthMarkedTotal == nil {
		return // Instrumentation not initialized
	}
	m.reauthMarkedTotal.Add(ctx, 1)
}

// RecordPersistenceFailure records a failed local write for operation.
func (m *Metrics) RecordPersistenceFailure(ctx context.Context, operation string) {
	if m == nil || m.persistenceFailuresTotal == nil {
		return // Instrumentation not initialized
	}
	m.persistenceFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// AgentRunStarted marks a run as in flight.
func (m *Metrics) AgentRunStarted(ctx context.Context) {
	if m == nil || m.agentRunsInFlight == nil {
		return // Instrumentation not initialized
	}
	m.agentRunsInFlight.Add(ctx, 1)
}

// AgentRunFinished records the final status of a run started with AgentRunStarted.
func (m *Metrics) AgentRunFinished(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.agentRunsTotal == nil {
		return // Instrumentation not initialized
	}
	m.agentRunsInFlight.Add(ctx, -1)
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.agentRunsTotal.Add(ctx, 1, attrs)
	m.agentRunDuration.Record(ctx, duration.Seconds(), attrs)
}

// Package instrumentation provides OpenTelemetry metrics, tracing and tool
// audit logging for agendabot.
//
// # Metrics
//
// Calendar provider:
//   - calendar_api_operations_total: calendar provider calls by operation and status
//   - calendar_api_operation_duration_seconds: calendar provider call latency
//
// Tool calls (router operations invoked by the agent, MCP clients or the CLI):
//   - tool_calls_total: router operations by tool name and status
//   - tool_call_duration_seconds: router operation latency
//
// Booking engine:
//   - bookings_total: booking attempts by result (booked, conflict, rejected, simulated)
//   - calendar_reauth_marked_total: credentials flagged for re-authorization
//   - persistence_failures_total: local store writes that failed after a provider success
//
// Agent runs:
//   - agent_runs_total: finished runs by final status
//   - agent_run_duration_seconds: time from run creation to a final status
//   - agent_runs_in_flight: runs currently being polled
//
// # Exporters
//
// Metrics go to Prometheus (default), OTLP over HTTP, or stdout. Traces go
// to OTLP over HTTP, stdout, or nowhere (default). See Config.
//
// When instrumentation is disabled, NewProvider returns a Provider whose
// Metrics methods are no-ops, so callers never need nil checks.
package instrumentation

// Package server exposes agendabot over the network.
//
// # Key Components
//
// RegisterTools publishes the router operations as MCP tools, so any MCP
// client can check availability or book appointments. HTTPServer serves
// those tools over the streamable HTTP transport next to the health
// endpoints; the stdio transport needs no server type.
//
// MetricsServer serves Prometheus metrics and health checks on a dedicated
// port, isolated from the MCP traffic.
//
// HealthChecker implements the /healthz, /readyz and /healthz/detailed
// endpoints. Readiness runs the registered dependency checks (store,
// Redis) with a timeout.
package server

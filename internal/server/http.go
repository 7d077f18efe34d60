package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// DefaultMCPEndpoint is the path of the streamable HTTP endpoint.
const DefaultMCPEndpoint = "/mcp"

// HTTPServer serves an MCP server over streamable HTTP.
type HTTPServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHTTPServer creates the HTTP server for mcpSrv. Health endpoints are
// served on the same port when health is not nil.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, addr string, health *HealthChecker, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(DefaultMCPEndpoint, mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(DefaultMCPEndpoint),
	))
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		logger: logger.With("component", "http"),
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			// Booking calls wait on the calendar provider.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start listens and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("starting MCP HTTP server", "addr", ln.Addr().String(), "endpoint", DefaultMCPEndpoint)
	return s.httpServer.Serve(ln)
}

// Handler returns the server's HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

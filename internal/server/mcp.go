package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/router"
)

// Operations is the router surface published over MCP.
type Operations interface {
	Dispatch(ctx context.Context, req router.Request) router.Envelope
	Definitions() []router.Definition
}

// NewMCPServer returns an MCP server publishing every operation as a tool.
func NewMCPServer(name, version string, ops Operations, logger *slog.Logger) (*mcpserver.MCPServer, error) {
	s := mcpserver.NewMCPServer(name, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	tools, err := Tools(ops, logger)
	if err != nil {
		return nil, err
	}
	s.AddTools(tools...)
	return s, nil
}

// Tools builds one MCP tool per operation.
func Tools(ops Operations, logger *slog.Logger) ([]mcpserver.ServerTool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcp")

	defs := ops.Definitions()
	tools := make([]mcpserver.ServerTool, 0, len(defs))
	for _, def := range defs {
		schema, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema of %s: %w", def.Name, err)
		}
		tools = append(tools, mcpserver.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(def.Name, def.Description, schema),
			Handler: toolHandler(ops, def.Name, logger),
		})
	}
	return tools, nil
}

// toolHandler dispatches an MCP tool call. Failed operations are returned
// as tool errors carrying the full envelope.
func toolHandler(ops Operations, name string, logger *slog.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		env := ops.Dispatch(ctx, router.Request{
			Name:      name,
			Arguments: args,
			Source:    instrumentation.SourceMCP,
		})
		if !env.Success() {
			logger.Debug("tool call failed", logging.Tool(name), "error_kind", env.ErrorKind())
			return mcp.NewToolResultError(env.JSON()), nil
		}
		return mcp.NewToolResultText(env.JSON()), nil
	}
}

// Package mcpserver exposes the instrumentation lifecycle as MCP tools over
// stdio. It is a thin adapter: arguments arrive as plain data, results and
// tagged failures come straight from the session controller.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/probekit/probekit/internal/session"
)

const (
	serverName    = "probekit"
	serverVersion = "0.1.0"
)

// Server wraps the MCP server bound to one session controller.
type Server struct {
	mcpServer  *mcp.Server
	controller *session.Controller
}

// New creates the MCP server and registers every tool.
func New(controller *session.Controller) *Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(srv, StartSessionTool(), StartSessionHandler(controller))
	mcp.AddTool(srv, StopSessionTool(), StopSessionHandler(controller))
	mcp.AddTool(srv, AddInstrumentTool(), AddInstrumentHandler(controller))
	mcp.AddTool(srv, RemoveInstrumentsTool(), RemoveInstrumentsHandler(controller))
	mcp.AddTool(srv, ListInstrumentsTool(), ListInstrumentsHandler(controller))
	mcp.AddTool(srv, ReadLogsTool(), ReadLogsHandler(controller))
	mcp.AddTool(srv, ClearLogsTool(), ClearLogsHandler(controller))

	return &Server{mcpServer: srv, controller: controller}
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Package mcptools exposes the agent registry as Model Context Protocol tools.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/enigma/internal/agent"
)

// NewServer creates an MCP server with the list_agents, get_agent and
// process_message tools registered against reg.
func NewServer(reg *agent.Registry, version string) *mcp.Server {
	svc := NewAgentService(reg)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "enigma",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_agents",
		Description: "List every registered agent with its name and description.",
	}, svc.ListAgents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_agent",
		Description: "Return the name and description of one agent. Fails if no agent has that exact name.",
	}, svc.GetAgent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_message",
		Description: "Send a text message to a named agent and return its response.",
	}, svc.ProcessMessage)

	return server
}

// RunStdio serves the MCP server on stdin/stdout, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a streamable HTTP handler serving server, suitable for
// mounting on the main mux.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
}

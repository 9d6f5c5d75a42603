// Package agent defines the Agent interface, the built-in agent variants and
// the in-memory Registry the HTTP and MCP surfaces look agents up in.
package agent

import "context"

// Info is the static metadata an agent reports about itself.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Agent is the interface that all agents implement.
type Agent interface {
	// Info returns the agent's name and description. It has no side effects.
	Info() Info

	// Process transforms a message and returns the agent's response.
	// Implementations must be safe for concurrent calls and must not keep
	// per-call state between invocations.
	Process(ctx context.Context, message string) (string, error)
}

// Kind identifies an agent variant that can be built from configuration.
type Kind string

const (
	KindEcho Kind = "echo"
)

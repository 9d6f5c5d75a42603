package server

import "github.com/dusk-indust/enigma/internal/agent"

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Welcome to Symmetrical Enigma!"

// WelcomeResponse is the body of GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// AgentInfo describes an agent in GET /agents and GET /agents/{name}.
type AgentInfo = agent.Info

// MessageRequest is the body of POST /agents/{name}/process.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse wraps an agent's reply.
type MessageResponse struct {
	AgentName string `json:"agent_name"`
	Response  string `json:"response"`
}

// ErrorResponse is the body of every non-2xx response produced by the
// handlers.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Agents  int    `json:"agents"`
	Version string `json:"version"`
}

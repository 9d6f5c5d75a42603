package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/enigma/internal/agent"
)

// AgentService holds the registry the MCP tool handlers read from.
type AgentService struct {
	registry *agent.Registry
}

// NewAgentService creates an AgentService over reg.
func NewAgentService(reg *agent.Registry) *AgentService {
	return &AgentService{registry: reg}
}

// ListAgentsInput is the input for the list_agents MCP tool.
type ListAgentsInput struct{}

// ListAgentsOutput is the result of the list_agents MCP tool.
type ListAgentsOutput struct {
	Agents []agent.Info `json:"agents"`
}

// GetAgentInput is the input for the get_agent MCP tool.
type GetAgentInput struct {
	Name string `json:"name" jsonschema:"exact, case-sensitive agent name"`
}

// GetAgentOutput is the result of the get_agent MCP tool.
type GetAgentOutput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProcessMessageInput is the input for the process_message MCP tool.
type ProcessMessageInput struct {
	Name    string `json:"name" jsonschema:"exact, case-sensitive agent name"`
	Message string `json:"message" jsonschema:"text to send to the agent; may be empty"`
}

// ProcessMessageOutput is the result of the process_message MCP tool.
type ProcessMessageOutput struct {
	AgentName string `json:"agent_name"`
	Response  string `json:"response"`
}

// ListAgents returns every registered agent.
func (s *AgentService) ListAgents(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListAgentsInput,
) (*mcp.CallToolResult, ListAgentsOutput, error) {
	return nil, ListAgentsOutput{Agents: s.registry.Infos()}, nil
}

// GetAgent returns one agent's metadata.
func (s *AgentService) GetAgent(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetAgentInput,
) (*mcp.CallToolResult, GetAgentOutput, error) {
	a, err := s.registry.Lookup(input.Name)
	if err != nil {
		return nil, GetAgentOutput{}, err
	}
	info := a.Info()
	return nil, GetAgentOutput{Name: info.Name, Description: info.Description}, nil
}

// ProcessMessage runs the named agent on the message.
func (s *AgentService) ProcessMessage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessMessageInput,
) (*mcp.CallToolResult, ProcessMessageOutput, error) {
	a, err := s.registry.Lookup(input.Name)
	if err != nil {
		return nil, ProcessMessageOutput{}, err
	}
	response, err := a.Process(ctx, input.Message)
	if err != nil {
		return nil, ProcessMessageOutput{}, err
	}
	return nil, ProcessMessageOutput{AgentName: a.Info().Name, Response: response}, nil
}

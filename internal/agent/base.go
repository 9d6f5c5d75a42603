package agent

import "context"

// Compile-time interface checks.
var (
	_ Agent = (*BaseAgent)(nil)
	_ Agent = (*EchoAgent)(nil)
)

// ProcessFunc is the transform a BaseAgent delegates Process to.
type ProcessFunc func(ctx context.Context, message string) (string, error)

// BaseAgent provides the metadata half of the Agent interface and delegates
// message processing to a ProcessFunc. Variants either embed BaseAgent or
// construct one directly around their transform.
type BaseAgent struct {
	name        string
	description string
	process     ProcessFunc
}

// NewBaseAgent creates a BaseAgent with the given metadata and process function.
func NewBaseAgent(name, description string, process ProcessFunc) *BaseAgent {
	return &BaseAgent{
		name:        name,
		description: description,
		process:     process,
	}
}

// Name returns the agent's registry name.
func (b *BaseAgent) Name() string {
	return b.name
}

// Description returns the agent's free-text description.
func (b *BaseAgent) Description() string {
	return b.description
}

// Info returns the agent's metadata.
func (b *BaseAgent) Info() Info {
	return Info{Name: b.name, Description: b.description}
}

// Process runs the agent's process function. A BaseAgent without one
// returns the message unchanged.
func (b *BaseAgent) Process(ctx context.Context, message string) (string, error) {
	if b.process == nil {
		return message, nil
	}
	return b.process(ctx, message)
}

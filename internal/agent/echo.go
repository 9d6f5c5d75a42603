package agent

import "context"

const (
	DefaultEchoName        = "EchoAgent"
	DefaultEchoDescription = "Echoes back the input message"
)

// EchoAgent returns its input, optionally prefixed. It is mostly useful for
// smoke-testing a deployment.
type EchoAgent struct {
	*BaseAgent
	prefix string
}

// EchoOption configures an EchoAgent.
type EchoOption func(*echoOptions)

type echoOptions struct {
	name        string
	description string
	prefix      string
}

// WithName overrides the default agent name.
func WithName(name string) EchoOption {
	return func(o *echoOptions) { o.name = name }
}

// WithDescription overrides the default description.
func WithDescription(description string) EchoOption {
	return func(o *echoOptions) { o.description = description }
}

// WithPrefix sets the text prepended to every echoed message.
func WithPrefix(prefix string) EchoOption {
	return func(o *echoOptions) { o.prefix = prefix }
}

// NewEchoAgent creates an EchoAgent named "EchoAgent" unless overridden.
func NewEchoAgent(opts ...EchoOption) *EchoAgent {
	o := echoOptions{
		name:        DefaultEchoName,
		description: DefaultEchoDescription,
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &EchoAgent{prefix: o.prefix}
	e.BaseAgent = NewBaseAgent(o.name, o.description, e.echo)
	return e
}

// Prefix returns the configured prefix, empty when none was set.
func (e *EchoAgent) Prefix() string {
	return e.prefix
}

func (e *EchoAgent) echo(_ context.Context, message string) (string, error) {
	if e.prefix != "" {
		return e.prefix + message, nil
	}
	return message, nil
}

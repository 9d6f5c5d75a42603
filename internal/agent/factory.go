package agent

import "fmt"

// Spec describes an agent to build from configuration.
type Spec struct {
	Kind        Kind   `yaml:"kind,omitempty"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Prefix      string `yaml:"prefix,omitempty"`
}

// Factory constructs an Agent from a Spec.
type Factory func(spec Spec) (Agent, error)

var factories = map[Kind]Factory{
	KindEcho: func(spec Spec) (Agent, error) {
		opts := []EchoOption{WithPrefix(spec.Prefix)}
		if spec.Name != "" {
			opts = append(opts, WithName(spec.Name))
		}
		if spec.Description != "" {
			opts = append(opts, WithDescription(spec.Description))
		}
		return NewEchoAgent(opts...), nil
	},
}

// Build creates the agent described by spec. An empty Kind means echo.
func Build(spec Spec) (Agent, error) {
	kind := spec.Kind
	if kind == "" {
		kind = KindEcho
	}
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("no factory registered for kind %q", kind)
	}
	a, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("build agent %q: %w", spec.Name, err)
	}
	return a, nil
}

// BuildAll builds every spec in order and stops at the first failure.
func BuildAll(specs []Spec) ([]Agent, error) {
	agents := make([]Agent, 0, len(specs))
	for _, spec := range specs {
		a, err := Build(spec)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// IsKnownKind reports whether Build can construct agents of kind k.
func IsKnownKind(k Kind) bool {
	if k == "" {
		return true
	}
	_, ok := factories[k]
	return ok
}

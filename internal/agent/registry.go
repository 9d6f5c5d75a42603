package agent

import (
	"sort"
	"sync"
)

// Registry maps agent names to agent instances. The key is always the
// agent's own Info().Name, so a registered agent can never report a name
// that differs from the one it is found under.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent, replacing any agent already registered under the
// same name.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Info().Name] = a
}

// Get returns the agent registered under name. The match is exact and
// case-sensitive.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Lookup is Get with the miss reported as a *NotFoundError.
func (r *Registry) Lookup(name string) (Agent, error) {
	a, ok := r.Get(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return a, nil
}

// List returns all registered agents sorted by name.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Info().Name < agents[j].Info().Name
	})
	return agents
}

// Infos returns the metadata of every registered agent, in List order.
func (r *Registry) Infos() []Info {
	agents := r.List()
	infos := make([]Info, len(agents))
	for i, a := range agents {
		infos[i] = a.Info()
	}
	return infos
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Reset removes every registered agent.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]Agent)
}

package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Info pairs an action with the strategy that serves it.
type Info struct {
	Action       string       `json:"action"`
	Capabilities Capabilities `json:"capabilities"`
}

// Registry maps action names to the strategy that executes them.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register assigns s to action, replacing any previous assignment.
func (r *Registry) Register(action string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[action] = s
}

// Resolve returns the strategy for action.
func (r *Registry) Resolve(action string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[action]
	if !ok {
		return nil, fmt.Errorf("%w for action %q", ErrNoStrategy, action)
	}
	return s, nil
}

// List returns every registered action sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.strategies))
	for action, s := range r.strategies {
		infos = append(infos, Info{
			Action:       action,
			Capabilities: s.Capabilities(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Action < infos[j].Action
	})
	return infos
}

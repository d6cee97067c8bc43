package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agenthub/core"
)

// InMemoryDirectory is a volatile core.Directory backed by a process-local
// map. It is safe for concurrent access and suited for tests, embedding and
// programmatic agent registration.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	agents map[string]*core.AgentDefinition
}

// NewInMemoryDirectory constructs an empty in-memory directory.
func NewInMemoryDirectory(defs ...*core.AgentDefinition) *InMemoryDirectory {
	d := &InMemoryDirectory{agents: make(map[string]*core.AgentDefinition)}
	for _, def := range defs {
		d.agents[def.ID] = def
	}
	return d
}

// Put registers or replaces an agent definition.
func (d *InMemoryDirectory) Put(def *core.AgentDefinition) {
	d.mu.Lock()
	d.agents[def.ID] = def
	d.mu.Unlock()
}

// Delete removes an agent definition.
func (d *InMemoryDirectory) Delete(id string) {
	d.mu.Lock()
	delete(d.agents, id)
	d.mu.Unlock()
}

// Load returns the definition for id.
func (d *InMemoryDirectory) Load(_ context.Context, id string) (*core.AgentDefinition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	return def, nil
}

// List returns all currently defined agents.
func (d *InMemoryDirectory) List(_ context.Context) ([]*core.AgentDefinition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	defs := make([]*core.AgentDefinition, 0, len(d.agents))
	for _, def := range d.agents {
		defs = append(defs, def)
	}
	return defs, nil
}

// InMemoryCronStore is a volatile core.CronStore backed by a process-local map.
type InMemoryCronStore struct {
	mu    sync.RWMutex
	crons map[string]*core.CronDefinition
}

// NewInMemoryCronStore constructs an empty in-memory cron store.
func NewInMemoryCronStore(defs ...*core.CronDefinition) *InMemoryCronStore {
	s := &InMemoryCronStore{crons: make(map[string]*core.CronDefinition)}
	for _, def := range defs {
		s.crons[def.Name] = def
	}
	return s
}

// Put registers or replaces a cron definition.
func (s *InMemoryCronStore) Put(def *core.CronDefinition) {
	s.mu.Lock()
	s.crons[def.Name] = def
	s.mu.Unlock()
}

// Discover returns all defined cron jobs.
func (s *InMemoryCronStore) Discover(_ context.Context) ([]*core.CronDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]*core.CronDefinition, 0, len(s.crons))
	for _, def := range s.crons {
		defs = append(defs, def)
	}
	return defs, nil
}

// Delete removes a cron definition by name.
func (s *InMemoryCronStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.crons[name]; !ok {
		return fmt.Errorf("cron %q: %w", name, core.ErrCronNotFound)
	}
	delete(s.crons, name)
	return nil
}

package core

import "context"

// AgentDefinition describes a configured agent: its identity, the system
// instruction its sessions run with, the model it uses and how many jobs may
// execute for it concurrently.
type AgentDefinition struct {
	// ID is the stable identifier jobs target.
	ID string `yaml:"id"`
	// Description is a human readable summary, surfaced to delegating agents.
	Description string `yaml:"description"`
	// Instruction is the system prompt for the agent's sessions.
	Instruction string `yaml:"instruction"`
	// Model names the chat model the agent's sessions use; empty selects the
	// provider default.
	Model string `yaml:"model"`
	// MaxConcurrency bounds how many session executors may run for this agent
	// at once. Values below 1 are treated as 1.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// EffectiveConcurrency returns MaxConcurrency clamped to at least 1.
func (d *AgentDefinition) EffectiveConcurrency() int {
	if d.MaxConcurrency < 1 {
		return 1
	}
	return d.MaxConcurrency
}

// Directory resolves agent definitions. The router consults it per job and
// uses List to reconcile its admission-slot table as agents are created and
// deleted over the process lifetime.
type Directory interface {
	// Load returns the definition for id or an error wrapping ErrAgentNotFound.
	Load(ctx context.Context, id string) (*AgentDefinition, error)
	// List returns all currently defined agents.
	List(ctx context.Context) ([]*AgentDefinition, error)
}

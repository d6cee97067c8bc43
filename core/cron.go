package core

import "context"

// CronDefinition is a scheduled prompt: when Schedule matches the scheduler's
// current tick, a background job carrying Prompt is enqueued for AgentID.
type CronDefinition struct {
	// Name identifies the definition within its store.
	Name string `yaml:"name"`
	// AgentID names the agent the fired job targets.
	AgentID string `yaml:"agent_id"`
	// Schedule is a five-field cron expression (minute granularity).
	Schedule string `yaml:"schedule"`
	// Prompt is the message payload of the fired job.
	Prompt string `yaml:"prompt"`
	// OneOff marks a definition that self-deletes after firing once.
	OneOff bool `yaml:"one_off"`
}

// CronStore provides the scheduler with the current set of cron definitions
// and deletes one-off definitions after they fire.
type CronStore interface {
	// Discover returns all defined cron jobs.
	Discover(ctx context.Context) ([]*CronDefinition, error)
	// Delete removes a definition by name; unknown names return an error
	// wrapping ErrCronNotFound.
	Delete(ctx context.Context, name string) error
}

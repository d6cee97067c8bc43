package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob("researcher", "look this up", ModeBackground)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "researcher", job.AgentID)
	assert.Equal(t, "look this up", job.Message)
	assert.Equal(t, ModeBackground, job.Mode)
	assert.Empty(t, job.SessionID)
	assert.Zero(t, job.RetryCount)
	require.NotNil(t, job.Future)
	assert.False(t, job.Future.Done())
	assert.IsType(t, SilentFrontend{}, job.Frontend)
}

func TestNewID_Unique(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestAgentDefinition_EffectiveConcurrency(t *testing.T) {
	assert.Equal(t, 1, (&AgentDefinition{}).EffectiveConcurrency())
	assert.Equal(t, 1, (&AgentDefinition{MaxConcurrency: -3}).EffectiveConcurrency())
	assert.Equal(t, 4, (&AgentDefinition{MaxConcurrency: 4}).EffectiveConcurrency())
}

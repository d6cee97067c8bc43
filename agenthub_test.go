package agenthub

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/model"
)

// echoModel replies with a deterministic transform of the last user message.
type echoModel struct {
	calls atomic.Int64
}

func (m *echoModel) Generate(_ context.Context, req *model.Request) (*model.Response, error) {
	m.calls.Add(1)
	last := req.Messages[len(req.Messages)-1]
	return &model.Response{Text: "echo: " + last.Text}, nil
}

func (m *echoModel) Info() model.Info {
	return model.Info{Name: "echo", Provider: "test"}
}

func TestAgentHub_DispatchSync(t *testing.T) {
	hub := New(&echoModel{})
	require.NoError(t, hub.RegisterAgent(&core.AgentDefinition{
		ID:          "assistant",
		Instruction: "You help.",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	result, err := hub.DispatchSync(ctx, "assistant", "hello", core.ModeChat)
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", result)
}

func TestAgentHub_DispatchReturnsJobWithFuture(t *testing.T) {
	hub := New(&echoModel{})
	require.NoError(t, hub.RegisterAgent(&core.AgentDefinition{ID: "assistant"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	job := hub.Dispatch(ctx, "assistant", "ping", core.ModeBackground)
	require.NotNil(t, job.Future)

	awaitCtx, awaitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer awaitCancel()
	result, err := job.Future.Await(awaitCtx)
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", result)
}

func TestAgentHub_UnknownAgentFailsFuture(t *testing.T) {
	hub := New(&echoModel{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	_, err := hub.DispatchSync(ctx, "nobody", "hello", core.ModeChat)
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

// delegatingModel asks for a delegation on the main agent's first turn and
// answers plainly everywhere else.
type delegatingModel struct{}

func (delegatingModel) Generate(_ context.Context, req *model.Request) (*model.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	switch {
	case strings.HasPrefix(last.Text, "Result from agent"):
		return &model.Response{Text: "Summary: " + last.Text}, nil
	case req.System == "You look things up.":
		return &model.Response{Text: "the answer is 42"}, nil
	default:
		return &model.Response{Text: "DELEGATE helper: look it up"}, nil
	}
}

func (delegatingModel) Info() model.Info {
	return model.Info{Name: "delegating", Provider: "test"}
}

// Without a running server there is no queue in the context; delegation must
// still work by invoking the delegate agent in-process.
func TestAgentHub_QueuelessDelegationRunsInProcess(t *testing.T) {
	hub := New(delegatingModel{})
	require.NoError(t, hub.RegisterAgent(&core.AgentDefinition{ID: "main", Instruction: "You orchestrate."}))
	require.NoError(t, hub.RegisterAgent(&core.AgentDefinition{ID: "helper", Instruction: "You look things up."}))

	ctx := context.Background()
	def, err := hub.directory.Load(ctx, "main")
	require.NoError(t, err)

	sess, err := hub.Sessions().Create(ctx, def, core.ModeChat, "")
	require.NoError(t, err)

	reply, err := sess.Chat(ctx, "hello", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "the answer is 42")
	assert.NotContains(t, reply, "delegation failed")
}

// frozenDirectory implements core.Directory without a Put method.
type frozenDirectory struct{}

func (frozenDirectory) Load(context.Context, string) (*core.AgentDefinition, error) {
	return nil, fmt.Errorf("immutable: %w", core.ErrAgentNotFound)
}

func (frozenDirectory) List(context.Context) ([]*core.AgentDefinition, error) {
	return nil, nil
}

func TestAgentHub_RegisterAgentRequiresWritableDirectory(t *testing.T) {
	hub := New(&echoModel{}, func(o *Options) {
		o.Directory = frozenDirectory{}
	})

	err := hub.RegisterAgent(&core.AgentDefinition{ID: "assistant"})
	assert.Error(t, err)
}

func TestAgentHub_RegisterCron(t *testing.T) {
	hub := New(&echoModel{})
	err := hub.RegisterCron(&core.CronDefinition{
		Name:     "heartbeat",
		AgentID:  "assistant",
		Schedule: "* * * * *",
		Prompt:   "check in",
	})
	require.NoError(t, err)

	defs, err := hub.crons.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "heartbeat", defs[0].Name)
}

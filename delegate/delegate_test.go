package delegate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthub/core"
)

// recordingFrontend captures delegation brackets and shown text in order.
type recordingFrontend struct {
	mu     sync.Mutex
	events []string
}

func (f *recordingFrontend) Show(_ context.Context, text string) error {
	f.record("show:" + text)
	return nil
}

func (f *recordingFrontend) BeginDelegation(_ context.Context, agentID string) {
	f.record("begin:" + agentID)
}

func (f *recordingFrontend) EndDelegation(_ context.Context, agentID string) {
	f.record("end:" + agentID)
}

func (f *recordingFrontend) record(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *recordingFrontend) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

var _ core.Frontend = (*recordingFrontend)(nil)

// directSession is a canned core.Session for the queue-less path.
type directSession struct {
	id    string
	reply string
	err   error
}

func (s *directSession) ID() string { return s.id }

func (s *directSession) Chat(context.Context, string, core.Frontend) (string, error) {
	return s.reply, s.err
}

// directSessions creates directSession instances for any definition.
type directSessions struct {
	reply string
	err   error
}

func (s *directSessions) Create(_ context.Context, _ *core.AgentDefinition, _ core.Mode, sessionID string) (core.Session, error) {
	if sessionID == "" {
		sessionID = core.NewID()
	}
	return &directSession{id: sessionID, reply: s.reply, err: s.err}, nil
}

func (s *directSessions) Resume(_ context.Context, _ *core.AgentDefinition, sessionID string) (core.Session, error) {
	return nil, fmt.Errorf("session %q: %w", sessionID, core.ErrSessionNotFound)
}

var _ core.SessionService = (*directSessions)(nil)

// consumeQueue resolves (or fails) every dequeued job until ctx ends.
func consumeQueue(ctx context.Context, queue *core.JobQueue, resolve func(job *core.Job)) {
	go func() {
		for {
			job, err := queue.Dequeue(ctx)
			if err != nil {
				return
			}
			resolve(job)
		}
	}()
}

func TestClient_QueuedDispatchAwaitsFuture(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	queue := core.NewJobQueue()
	ctx = core.WithQueue(ctx, queue)

	var seen *core.Job
	consumeQueue(ctx, queue, func(job *core.Job) {
		seen = job
		job.Future.Resolve("42")
	})

	client := New()
	frontend := &recordingFrontend{}

	result, err := client.Dispatch(ctx, frontend, "researcher", "look this up")
	require.NoError(t, err)
	assert.Equal(t, "42", result)

	require.NotNil(t, seen)
	assert.Equal(t, "researcher", seen.AgentID)
	assert.Equal(t, "look this up", seen.Message)
	assert.Equal(t, core.ModeBackground, seen.Mode)

	assert.Equal(t, []string{"begin:researcher", "end:researcher"}, frontend.snapshot())
}

func TestClient_QueuedDispatchPropagatesFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	queue := core.NewJobQueue()
	ctx = core.WithQueue(ctx, queue)

	consumeQueue(ctx, queue, func(job *core.Job) {
		job.Future.Fail(assert.AnError)
	})

	client := New()
	_, err := client.Dispatch(ctx, nil, "researcher", "look this up")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClient_DirectFallbackWithoutQueue(t *testing.T) {
	client := New(func(o *Options) {
		o.Directory = fakeDirectory{"researcher": {ID: "researcher"}}
		o.Sessions = &directSessions{reply: "done directly"}
	})

	frontend := &recordingFrontend{}
	result, err := client.Dispatch(context.Background(), frontend, "researcher", "go")
	require.NoError(t, err)
	assert.Equal(t, "done directly", result)
	assert.Equal(t, []string{"begin:researcher", "end:researcher"}, frontend.snapshot())
}

func TestClient_DirectFallbackUnknownAgent(t *testing.T) {
	client := New(func(o *Options) {
		o.Directory = fakeDirectory{}
		o.Sessions = &directSessions{reply: "unused"}
	})

	_, err := client.Dispatch(context.Background(), nil, "ghost", "go")
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestClient_BindSessionsEnablesDirectFallback(t *testing.T) {
	client := New(func(o *Options) {
		o.Directory = fakeDirectory{"researcher": {ID: "researcher"}}
	})

	_, err := client.Dispatch(context.Background(), nil, "researcher", "go")
	assert.ErrorIs(t, err, core.ErrNoQueue)

	client.BindSessions(&directSessions{reply: "bound"})
	result, err := client.Dispatch(context.Background(), nil, "researcher", "go")
	require.NoError(t, err)
	assert.Equal(t, "bound", result)
}

func TestClient_NoQueueAndNoFallbackFails(t *testing.T) {
	client := New()

	_, err := client.Dispatch(context.Background(), nil, "researcher", "go")
	assert.ErrorIs(t, err, core.ErrNoQueue)
}

// fakeDirectory maps agent ids to definitions.
type fakeDirectory map[string]*core.AgentDefinition

func (d fakeDirectory) Load(_ context.Context, id string) (*core.AgentDefinition, error) {
	def, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	return def, nil
}

func (d fakeDirectory) List(context.Context) ([]*core.AgentDefinition, error) {
	defs := make([]*core.AgentDefinition, 0, len(d))
	for _, def := range d {
		defs = append(defs, def)
	}
	return defs, nil
}

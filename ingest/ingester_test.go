package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/directory"
	"github.com/hupe1980/agenthub/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform is a scripted PlatformConnection recording replies and
// exposing the registered message callback for direct injection.
type fakePlatform struct {
	name     string
	allowed  func(msg InboundMessage) bool
	replyErr error

	mu        sync.Mutex
	onMessage func(msg InboundMessage)
	replies   []string
	stopped   bool
}

func newFakePlatform(name string) *fakePlatform {
	return &fakePlatform{name: name, allowed: func(InboundMessage) bool { return true }}
}

func (f *fakePlatform) PlatformName() string { return f.name }

func (f *fakePlatform) Start(_ context.Context, onMessage func(msg InboundMessage)) error {
	f.mu.Lock()
	f.onMessage = onMessage
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) Stop() error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) Reply(_ context.Context, content string, _ InboundMessage) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.mu.Lock()
	f.replies = append(f.replies, content)
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) IsAllowed(msg InboundMessage) bool { return f.allowed(msg) }

func (f *fakePlatform) inject(msg InboundMessage) {
	f.mu.Lock()
	handler := f.onMessage
	f.mu.Unlock()
	handler(msg)
}

func (f *fakePlatform) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.replies))
	copy(out, f.replies)
	return out
}

var _ PlatformConnection = (*fakePlatform)(nil)

// startIngester runs the ingester until the returned stop function is called
// and waits for the registration of the message callback.
func startIngester(t *testing.T, i *Ingester, platform *fakePlatform) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = i.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		platform.mu.Lock()
		defer platform.mu.Unlock()
		return platform.onMessage != nil
	}, time.Second, 5*time.Millisecond, "platform never started")

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("ingester did not stop")
		}
	}
}

func testDirectory() *directory.InMemoryDirectory {
	return directory.NewInMemoryDirectory(&core.AgentDefinition{ID: "assistant", MaxConcurrency: 2})
}

func TestIngester_AllowedMessageBecomesJob(t *testing.T) {
	platform := newFakePlatform("testbus")
	queue := core.NewJobQueue()
	ingester := NewIngester(queue, testDirectory(), "assistant", []PlatformConnection{platform})
	stop := startIngester(t, ingester, platform)
	defer stop()

	platform.inject(InboundMessage{Platform: "testbus", SenderID: "alice", ChatID: "dm-1", Text: "hello there"})

	require.Equal(t, 1, queue.Len())
	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "assistant", job.AgentID)
	assert.Equal(t, "hello there", job.Message)
	assert.Equal(t, core.ModeChat, job.Mode)
	assert.Equal(t, "testbus:dm-1:alice", job.SessionID)

	// Resolve the future so the awaiting goroutine finishes cleanly.
	job.Future.Resolve("hi")
}

func TestIngester_StableSessionAcrossMessages(t *testing.T) {
	msg := InboundMessage{Platform: "testbus", SenderID: "alice", ChatID: "dm-1"}
	assert.Equal(t, SessionIDFor("testbus", msg), SessionIDFor("testbus", msg))
	other := InboundMessage{Platform: "testbus", SenderID: "bob", ChatID: "dm-1"}
	assert.NotEqual(t, SessionIDFor("testbus", msg), SessionIDFor("testbus", other))
}

func TestIngester_DisallowedSenderProducesNoJob(t *testing.T) {
	platform := newFakePlatform("testbus")
	platform.allowed = func(msg InboundMessage) bool { return msg.SenderID == "alice" }

	queue := core.NewJobQueue()
	ingester := NewIngester(queue, testDirectory(), "assistant", []PlatformConnection{platform})
	stop := startIngester(t, ingester, platform)
	defer stop()

	platform.inject(InboundMessage{SenderID: "mallory", ChatID: "dm-9", Text: "let me in"})

	assert.Equal(t, 0, queue.Len())
}

func TestIngester_UnknownDefaultAgentFailsRun(t *testing.T) {
	queue := core.NewJobQueue()
	ingester := NewIngester(queue, directory.NewInMemoryDirectory(), "missing", nil)

	err := ingester.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestIngester_StopsConnectionsOnShutdown(t *testing.T) {
	platform := newFakePlatform("testbus")
	queue := core.NewJobQueue()
	ingester := NewIngester(queue, testDirectory(), "assistant", []PlatformConnection{platform})
	stop := startIngester(t, ingester, platform)

	stop()

	platform.mu.Lock()
	defer platform.mu.Unlock()
	assert.True(t, platform.stopped)
}

// failingPlatform reports a dead transport on demand, like WSConnection.
type failingPlatform struct {
	*fakePlatform
	fatal chan error
}

func newFailingPlatform(name string) *failingPlatform {
	return &failingPlatform{fakePlatform: newFakePlatform(name), fatal: make(chan error, 1)}
}

func (f *failingPlatform) Failures() <-chan error { return f.fatal }

var _ failureReporter = (*failingPlatform)(nil)

func TestIngester_DeadTransportFailsRun(t *testing.T) {
	platform := newFailingPlatform("gateway")
	queue := core.NewJobQueue()
	ingester := NewIngester(queue, testDirectory(), "assistant", []PlatformConnection{platform})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ingester.Run(ctx) }()

	require.Eventually(t, func() bool {
		platform.mu.Lock()
		defer platform.mu.Unlock()
		return platform.onMessage != nil
	}, time.Second, 5*time.Millisecond, "platform never started")

	wire := errors.New("connection reset")
	platform.fatal <- wire

	select {
	case err := <-done:
		assert.ErrorIs(t, err, wire)
	case <-time.After(time.Second):
		t.Fatal("ingester kept running with a dead transport")
	}

	platform.mu.Lock()
	defer platform.mu.Unlock()
	assert.True(t, platform.stopped)
}

func TestPlatformFrontend_DeliversAndBrackets(t *testing.T) {
	platform := newFakePlatform("testbus")
	msg := InboundMessage{SenderID: "alice", ChatID: "dm-1"}
	fe := newPlatformFrontend(platform, msg, logging.NoOpLogger{})

	ctx := context.Background()
	require.NoError(t, fe.Show(ctx, "the answer"))
	fe.BeginDelegation(ctx, "researcher")
	fe.EndDelegation(ctx, "researcher")

	assert.Equal(t, []string{"the answer", "[delegating to researcher]", "[researcher finished]"}, platform.recorded())
}

func TestPlatformFrontend_SwallowsReplyFailures(t *testing.T) {
	platform := newFakePlatform("testbus")
	platform.replyErr = errors.New("wire down")
	fe := newPlatformFrontend(platform, InboundMessage{ChatID: "dm-1"}, logging.NoOpLogger{})

	assert.NoError(t, fe.Show(context.Background(), "lost"))
}

func TestSenderAllowed(t *testing.T) {
	assert.True(t, senderAllowed(nil, "anyone"))
	assert.True(t, senderAllowed([]string{"alice", "bob"}, "bob"))
	assert.False(t, senderAllowed([]string{"alice"}, "mallory"))
}

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(minute int) time.Time {
	return time.Date(2025, time.March, 7, 14, minute, 0, 0, time.UTC)
}

func TestIsDue_EveryFiveMinutes(t *testing.T) {
	for minute, want := range map[int]bool{
		10: true,
		11: false,
		12: false,
		13: false,
		14: false,
		15: true,
	} {
		due, err := isDue("*/5 * * * *", at(minute))
		require.NoError(t, err)
		assert.Equal(t, want, due, "minute %d", minute)
	}
}

func TestIsDue_ExactMatchOnly(t *testing.T) {
	// 14:30 every day
	due, err := isDue("30 14 * * *", at(30))
	require.NoError(t, err)
	assert.True(t, due)

	// One minute later the expression no longer matches; there is no
	// "matches at or before" semantics.
	due, err = isDue("30 14 * * *", at(31))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_InvalidExpression(t *testing.T) {
	_, err := isDue("not a schedule", at(0))
	assert.Error(t, err)
}

func TestScheduler_EnqueuesDueJobs(t *testing.T) {
	crons := directory.NewInMemoryCronStore(
		&core.CronDefinition{Name: "report", AgentID: "analyst", Schedule: "*/5 * * * *", Prompt: "write the report"},
		&core.CronDefinition{Name: "later", AgentID: "analyst", Schedule: "45 * * * *", Prompt: "not yet"},
	)
	queue := core.NewJobQueue()
	s := NewScheduler(queue, crons)

	s.poll(context.Background(), at(10))

	require.Equal(t, 1, queue.Len())
	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "analyst", job.AgentID)
	assert.Equal(t, "write the report", job.Message)
	assert.Equal(t, core.ModeBackground, job.Mode)
	assert.Empty(t, job.SessionID)
	assert.IsType(t, core.SilentFrontend{}, job.Frontend)
}

func TestScheduler_OneOffDeletedAfterFiring(t *testing.T) {
	crons := directory.NewInMemoryCronStore(
		&core.CronDefinition{Name: "once", AgentID: "analyst", Schedule: "10 14 * * *", Prompt: "single shot", OneOff: true},
	)
	queue := core.NewJobQueue()
	s := NewScheduler(queue, crons)

	s.poll(context.Background(), at(10))
	assert.Equal(t, 1, queue.Len())

	defs, err := crons.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)

	// A subsequent matching poll finds nothing to fire.
	s.poll(context.Background(), at(10))
	assert.Equal(t, 1, queue.Len())
}

func TestScheduler_InvalidScheduleDoesNotBlockOthers(t *testing.T) {
	crons := directory.NewInMemoryCronStore(
		&core.CronDefinition{Name: "bad", AgentID: "a", Schedule: "nope", Prompt: "x"},
		&core.CronDefinition{Name: "good", AgentID: "a", Schedule: "* * * * *", Prompt: "y"},
	)
	queue := core.NewJobQueue()
	s := NewScheduler(queue, crons)

	s.poll(context.Background(), at(7))

	require.Equal(t, 1, queue.Len())
	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "y", job.Message)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	queue := core.NewJobQueue()
	s := NewScheduler(queue, directory.NewInMemoryCronStore(), func(o *Options) {
		o.PollInterval = time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

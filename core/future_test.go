package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultFuture_Resolve(t *testing.T) {
	f := NewResultFuture()
	assert.False(t, f.Done())

	f.Resolve("done")

	value, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", value)
	assert.True(t, f.Done())
}

func TestResultFuture_Fail(t *testing.T) {
	f := NewResultFuture()
	boom := errors.New("boom")
	f.Fail(boom)

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestResultFuture_FirstWriteWins(t *testing.T) {
	f := NewResultFuture()
	f.Resolve("first")
	f.Resolve("second")
	f.Fail(errors.New("ignored"))

	value, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", value)
}

func TestResultFuture_AwaitHonorsContext(t *testing.T) {
	f := NewResultFuture()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResultFuture_AwaitUnblocksOnResolve(t *testing.T) {
	f := NewResultFuture()

	got := make(chan string, 1)
	go func() {
		value, err := f.Await(context.Background())
		if err == nil {
			got <- value
		}
	}()

	f.Resolve("late")

	select {
	case value := <-got:
		assert.Equal(t, "late", value)
	case <-time.After(time.Second):
		t.Fatal("await did not unblock")
	}
}

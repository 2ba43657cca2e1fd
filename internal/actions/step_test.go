package actions

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepPauseInterruptsAndReissues(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})
	step := NewStep("Walk", func(ctx context.Context) error {
		attempts.Add(1)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	in := NewInstance("job", "Walk", nil, step, context.Background())
	ctx := context.Background()

	require.NoError(t, in.Start(ctx))
	require.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, in.Pause(ctx))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, StatePaused, in.State())

	require.NoError(t, in.Resume(ctx))
	require.Eventually(t, func() bool { return attempts.Load() == 2 }, time.Second, 5*time.Millisecond)

	close(release)
	awaitState(t, in, StateSucceeded)
}

func TestStepCancelStopsOperation(t *testing.T) {
	stopped := make(chan struct{})
	step := NewAtomicStep("Craft", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})
	in := NewInstance("job", "Craft", nil, step, context.Background())
	ctx := context.Background()

	require.NoError(t, in.Start(ctx))
	require.NoError(t, in.Cancel(ctx))

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("operation was not stopped")
	}
	assert.Equal(t, StateCanceled, in.State())
	assert.Equal(t, "", in.Message())
}

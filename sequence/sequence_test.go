package sequence_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nasa-jpl/saperacam/sequence"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFrameBudget(t *testing.T) {
	var th sequence.Thread
	var n int32
	require.NoError(t, th.Start(sequence.Config{Frames: 5}, func(ctx context.Context, i int) error {
		atomic.AddInt32(&n, 1)
		return nil
	}))
	require.NoError(t, th.Wait())
	assert.Equal(t, int32(5), atomic.LoadInt32(&n))
	assert.Equal(t, 5, th.Count())
	assert.Equal(t, sequence.Idle, th.State())
	assert.False(t, th.Active())
}

func TestStopJoins(t *testing.T) {
	var th sequence.Thread
	started := make(chan struct{})
	var once int32
	require.NoError(t, th.Start(sequence.Config{}, func(ctx context.Context, i int) error {
		if atomic.CompareAndSwapInt32(&once, 0, 1) {
			close(started)
		}
		time.Sleep(time.Millisecond)
		return nil
	}))
	<-started
	assert.True(t, th.Active())
	assert.ErrorIs(t, th.Start(sequence.Config{}, nil), sequence.ErrRunning)

	th.Stop()
	assert.False(t, th.Active())
	require.NoError(t, th.Wait())
	assert.Equal(t, sequence.Idle, th.State())
}

func TestStepErrorEndsLoop(t *testing.T) {
	var th sequence.Thread
	boom := errors.New("sink refused frame")
	require.NoError(t, th.Start(sequence.Config{Frames: 100}, func(ctx context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	}))
	assert.ErrorIs(t, th.Wait(), boom)
	assert.Equal(t, 3, th.Count())
	assert.False(t, th.Active())
}

func TestErrDoneIsClean(t *testing.T) {
	var th sequence.Thread
	require.NoError(t, th.Start(sequence.Config{}, func(ctx context.Context, i int) error {
		return sequence.ErrDone
	}))
	assert.NoError(t, th.Wait())
}

func TestRestart(t *testing.T) {
	var th sequence.Thread
	step := func(ctx context.Context, i int) error { return nil }
	require.NoError(t, th.Start(sequence.Config{Frames: 1}, step))
	require.NoError(t, th.Wait())
	require.NoError(t, th.Start(sequence.Config{Frames: 2}, step))
	require.NoError(t, th.Wait())
	assert.Equal(t, 2, th.Count())
}

func TestIntervalLimitsRate(t *testing.T) {
	var th sequence.Thread
	start := time.Now()
	require.NoError(t, th.Start(sequence.Config{Frames: 4, Interval: 20 * time.Millisecond}, func(ctx context.Context, i int) error {
		return nil
	}))
	require.NoError(t, th.Wait())
	// the first step is immediate, the next three wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestStopDuringIntervalWait(t *testing.T) {
	var th sequence.Thread
	first := make(chan struct{})
	require.NoError(t, th.Start(sequence.Config{Interval: time.Hour}, func(ctx context.Context, i int) error {
		close(first)
		return nil
	}))
	<-first
	th.Stop()
	require.NoError(t, th.Wait())
	assert.Equal(t, 1, th.Count())
}

func TestWaitOnIdle(t *testing.T) {
	var th sequence.Thread
	assert.NoError(t, th.Wait())
	th.Stop()
	assert.Equal(t, sequence.Idle, th.State())
}

func TestOnExit(t *testing.T) {
	var th sequence.Thread
	boom := errors.New("boom")
	var got error
	var state sequence.State
	require.NoError(t, th.Start(sequence.Config{OnExit: func(err error) {
		got = err
		state = th.State()
	}}, func(ctx context.Context, i int) error {
		return boom
	}))
	assert.True(t, errors.Is(th.Wait(), boom))
	assert.True(t, errors.Is(got, boom))
	assert.Equal(t, sequence.Stopping, state)
	assert.Equal(t, sequence.Idle, th.State())
}

func TestNoRestartDuringOnExit(t *testing.T) {
	var th sequence.Thread
	var restart error
	require.NoError(t, th.Start(sequence.Config{Frames: 1, OnExit: func(error) {
		restart = th.Start(sequence.Config{}, func(ctx context.Context, i int) error { return nil })
	}}, func(ctx context.Context, i int) error {
		return nil
	}))
	require.NoError(t, th.Wait())
	assert.True(t, errors.Is(restart, sequence.ErrRunning))
	assert.Equal(t, sequence.Idle, th.State())
}

package aat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalScheduler_RequiresCallback(t *testing.T) {
	s := NewIntervalScheduler(time.Minute, true, log.New())
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback must be registered")
}

func TestIntervalScheduler_RunOnce(t *testing.T) {
	s := NewIntervalScheduler(0, true, log.New())

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	// No periodic goroutine in run-once mode.
	require.NoError(t, s.WaitForShutdown(context.Background()))
}

func TestIntervalScheduler_RunOncePropagatesError(t *testing.T) {
	s := NewIntervalScheduler(0, true, log.New())

	wantErr := errors.New("suite failed to load")
	s.RegisterCallback(func() error { return wantErr })

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestIntervalScheduler_PeriodicRuns(t *testing.T) {
	s := NewIntervalScheduler(10*time.Millisecond, false, log.New())

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Stopped())

	// The first run happens synchronously on Start; wait for at least one
	// periodic follow-up.
	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.True(t, s.Stopped())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.WaitForShutdown(ctx))
}

func TestIntervalScheduler_StopIsIdempotent(t *testing.T) {
	s := NewIntervalScheduler(time.Minute, false, log.New())
	s.RegisterCallback(func() error { return nil })

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "a second Stop must not panic on the closed channel")
}

func TestIntervalScheduler_ContextCancelStopsPeriodicRuns(t *testing.T) {
	s := NewIntervalScheduler(5*time.Millisecond, false, log.New())

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, s.WaitForShutdown(waitCtx))
	assert.True(t, s.Stopped())
}

package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/device-infra/app-acceptor/types"
)

func newTestRetryCoordinator(t *testing.T, cfg types.SuiteConfig) RetryCoordinator {
	t.Helper()
	return NewRetryCoordinator(NewLifecycleExecutor(log.New()), cfg, log.New())
}

func TestRetryCoordinator_PassFirstAttempt(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: time.Second, RetryLimit: 3, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	calls := 0
	tc := types.TestCase{
		ID: "stable",
		Body: func(ctx context.Context) error {
			calls++
			return nil
		},
	}

	tr := retry.Run(context.Background(), tc)

	assert.Equal(t, types.TestStatusPass, tr.Status)
	assert.Equal(t, 1, calls, "a passing test is never retried")
	assert.Equal(t, 1, tr.AttemptCount())
}

func TestRetryCoordinator_ExhaustsBudget(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: time.Second, RetryLimit: 2, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	calls := 0
	bodyErr := errors.New("always fails")
	tc := types.TestCase{
		ID: "flaky",
		Body: func(ctx context.Context) error {
			calls++
			return bodyErr
		},
	}

	tr := retry.Run(context.Background(), tc)

	assert.Equal(t, types.TestStatusFail, tr.Status)
	assert.ErrorIs(t, tr.Err, bodyErr)
	assert.Equal(t, 3, calls, "retry limit 2 means 3 attempts total")
	require.Equal(t, 3, tr.AttemptCount())

	// Attempts are numbered from 1 in order.
	for i, a := range tr.Attempts {
		assert.Equal(t, i+1, a.Index)
	}
}

func TestRetryCoordinator_PassOnLaterAttempt(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: time.Second, RetryLimit: 5, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	calls := 0
	tc := types.TestCase{
		ID: "eventually-passes",
		Body: func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		},
	}

	tr := retry.Run(context.Background(), tc)

	assert.Equal(t, types.TestStatusPass, tr.Status)
	assert.NoError(t, tr.Err)
	assert.Equal(t, 3, calls, "retrying stops as soon as an attempt passes")
	assert.Equal(t, 3, tr.AttemptCount())
}

func TestRetryCoordinator_PerCaseOverride(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: time.Second, RetryLimit: 5, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	calls := 0
	zero := 0
	tc := types.TestCase{
		ID:         "no-retries",
		RetryLimit: &zero,
		Body: func(ctx context.Context) error {
			calls++
			return errors.New("fails")
		},
	}

	tr := retry.Run(context.Background(), tc)

	assert.Equal(t, types.TestStatusFail, tr.Status)
	assert.Equal(t, 1, calls, "per-case zero override beats the suite default")
}

func TestRetryCoordinator_SetupFailureIsRetryable(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: time.Second, RetryLimit: 1, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	setupCalls := 0
	tc := types.TestCase{
		ID: "setup-flaky",
		Setup: func(ctx context.Context) error {
			setupCalls++
			if setupCalls == 1 {
				return errors.New("device busy")
			}
			return nil
		},
		Body: func(ctx context.Context) error {
			return nil
		},
	}

	tr := retry.Run(context.Background(), tc)

	assert.Equal(t, types.TestStatusPass, tr.Status)
	require.Equal(t, 2, tr.AttemptCount())
	assert.Equal(t, types.TestStatusSetupFailed, tr.Attempts[0].Status)
	assert.Equal(t, types.TestStatusPass, tr.Attempts[1].Status)
}

func TestRetryCoordinator_TimeoutIsRetryable(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: 30 * time.Millisecond, RetryLimit: 1, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	calls := 0
	tc := types.TestCase{
		ID: "slow-then-fast",
		Body: func(ctx context.Context) error {
			calls++
			if calls == 1 {
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		},
	}

	tr := retry.Run(context.Background(), tc)

	assert.Equal(t, types.TestStatusPass, tr.Status)
	require.Equal(t, 2, tr.AttemptCount())
	assert.Equal(t, types.TestStatusTimeout, tr.Attempts[0].Status)
}

func TestRetryCoordinator_CumulativeDuration(t *testing.T) {
	cfg := types.SuiteConfig{Timeout: time.Second, RetryLimit: 2, RetryDelay: time.Millisecond}
	retry := newTestRetryCoordinator(t, cfg)

	tc := types.TestCase{
		ID: "sleeper",
		Body: func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return errors.New("fails")
		},
	}

	tr := retry.Run(context.Background(), tc)

	var want time.Duration
	for _, a := range tr.Attempts {
		want += a.Duration()
	}
	assert.Equal(t, want, tr.Duration, "result duration is the sum across attempts")
}

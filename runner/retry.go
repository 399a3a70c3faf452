package runner

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"

	"github.com/device-infra/app-acceptor/types"
)

var _ RetryCoordinator = (*retryCoordinator)(nil)

// errAttemptNotPassed signals backoff to keep retrying; the attempt's real
// outcome is captured in the history, never propagated to the caller.
var errAttemptNotPassed = errors.New("attempt did not pass")

// RetryCoordinator drives an AttemptExecutor until an attempt passes or the
// retry budget is exhausted. With effective retry limit R it makes at most
// R+1 attempts, numbered from 1, waiting the configured delay between
// attempts but never after the final one. Timeouts, failures and setup
// failures are all retryable.
type RetryCoordinator interface {
	Run(ctx context.Context, tc types.TestCase) *types.TestResult
}

// retryCoordinator implements RetryCoordinator
type retryCoordinator struct {
	exec AttemptExecutor
	cfg  types.SuiteConfig
	log  log.Logger
}

// NewRetryCoordinator creates a new retry coordinator
func NewRetryCoordinator(exec AttemptExecutor, cfg types.SuiteConfig, logger log.Logger) RetryCoordinator {
	if exec == nil {
		panic("executor cannot be nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &retryCoordinator{
		exec: exec,
		cfg:  cfg,
		log:  logger,
	}
}

// Run executes a test case to its final result
func (r *retryCoordinator) Run(ctx context.Context, tc types.TestCase) *types.TestResult {
	limit := r.cfg.EffectiveRetryLimit(tc)
	timeout := r.cfg.EffectiveTimeout(tc)

	var attempts []types.Attempt
	operation := func() error {
		attempt := r.exec.Execute(ctx, tc, len(attempts)+1, timeout)
		attempts = append(attempts, attempt)

		if attempt.Status == types.TestStatusPass {
			return nil
		}
		if len(attempts) <= limit {
			r.log.Info("Attempt did not pass, retrying",
				"test", tc.GetName(),
				"attempt", attempt.Index,
				"maxAttempts", limit+1,
				"status", attempt.Status,
				"delay", r.cfg.RetryDelay)
		}
		return errAttemptNotPassed
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RetryDelay), uint64(limit)),
		ctx)
	// The returned error is intentionally dropped: the final attempt's
	// outcome already carries everything the caller needs.
	_ = backoff.Retry(operation, bo)

	last := attempts[len(attempts)-1]
	var total time.Duration
	for _, a := range attempts {
		total += a.Duration()
	}

	return &types.TestResult{
		Case:     tc,
		Status:   last.Status,
		Err:      last.Err,
		Duration: total,
		Attempts: attempts,
	}
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/device-infra/app-acceptor/types"
	"github.com/ethereum/go-ethereum/log"
)

var _ AttemptExecutor = (*lifecycleExecutor)(nil)

// AttemptExecutor runs exactly one attempt of a test case's lifecycle:
// setup, then the body raced against the effective timeout, then teardown.
//
// Policy notes (the source of truth for implementation-defined behavior):
//   - Teardown runs even when setup fails, best-effort; its error does not
//     mask the setup error.
//   - A teardown error on an otherwise-passing attempt fails the attempt.
//   - When the timer wins the race the body is abandoned cooperatively: its
//     context is canceled and the executor stops waiting, but the underlying
//     goroutine may keep running until it observes the cancellation.
type AttemptExecutor interface {
	Execute(ctx context.Context, tc types.TestCase, attemptIndex int, timeout time.Duration) types.Attempt
}

// lifecycleExecutor implements AttemptExecutor. It retains no state between
// invocations.
type lifecycleExecutor struct {
	log log.Logger
}

// NewLifecycleExecutor creates a new lifecycle executor
func NewLifecycleExecutor(logger log.Logger) AttemptExecutor {
	if logger == nil {
		logger = log.New()
	}
	return &lifecycleExecutor{log: logger}
}

// Execute runs one attempt and returns its Attempt record
func (e *lifecycleExecutor) Execute(ctx context.Context, tc types.TestCase, attemptIndex int, timeout time.Duration) types.Attempt {
	attempt := types.Attempt{
		Index: attemptIndex,
		Start: time.Now(),
	}

	e.log.Debug("Starting attempt", "test", tc.GetName(), "attempt", attemptIndex, "timeout", timeout)

	if tc.Setup != nil {
		if err := e.runAction(ctx, tc.Setup); err != nil {
			e.runTeardown(ctx, tc)
			attempt.End = time.Now()
			attempt.Status = types.TestStatusSetupFailed
			attempt.Err = fmt.Errorf("setup failed: %w", err)
			return attempt
		}
	}

	status, err := e.raceBody(ctx, tc, timeout)

	// Teardown is attempted regardless of the body's outcome, including
	// after a timeout.
	if tdErr := e.runTeardown(ctx, tc); tdErr != nil && status == types.TestStatusPass {
		status = types.TestStatusFail
		err = fmt.Errorf("teardown failed: %w", tdErr)
	}

	attempt.End = time.Now()
	attempt.Status = status
	attempt.Err = err
	return attempt
}

// raceBody runs the body against a timer. Whichever completes first
// determines the outcome; if the timer fires first the body is abandoned.
func (e *lifecycleExecutor) raceBody(ctx context.Context, tc types.TestCase, timeout time.Duration) (types.TestStatus, error) {
	bodyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the abandoned body goroutine can still complete its send
	// and exit after a timeout.
	done := make(chan error, 1)
	go func() {
		done <- e.runAction(bodyCtx, tc.Body)
	}()

	select {
	case err := <-done:
		if err != nil {
			// The body can observe the deadline and return its context
			// error before the select sees the timer; that is still a
			// timeout, not a plain failure.
			if errors.Is(err, context.DeadlineExceeded) &&
				errors.Is(bodyCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				e.log.Warn("Test timed out", "test", tc.GetName(), "timeout", timeout)
				return types.TestStatusTimeout, fmt.Errorf("test timed out after %v", timeout)
			}
			return types.TestStatusFail, err
		}
		return types.TestStatusPass, nil
	case <-bodyCtx.Done():
		if errors.Is(bodyCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			e.log.Warn("Test timed out", "test", tc.GetName(), "timeout", timeout)
			return types.TestStatusTimeout, fmt.Errorf("test timed out after %v", timeout)
		}
		// The parent context was canceled out from under us.
		return types.TestStatusFail, fmt.Errorf("test canceled: %w", ctx.Err())
	}
}

// runTeardown invokes the teardown action best-effort and returns its error
func (e *lifecycleExecutor) runTeardown(ctx context.Context, tc types.TestCase) error {
	if tc.Teardown == nil {
		return nil
	}
	if err := e.runAction(ctx, tc.Teardown); err != nil {
		e.log.Warn("Teardown failed", "test", tc.GetName(), "error", err)
		return err
	}
	return nil
}

// runAction invokes an action and converts panics into errors so a
// misbehaving test body can never take down the orchestrator.
func (e *lifecycleExecutor) runAction(ctx context.Context, action types.Action) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("runtime error: %v", rec)
		}
	}()
	return action(ctx)
}

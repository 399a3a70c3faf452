package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/device-infra/app-acceptor/types"
)

// testWork is a unit of work dispatched to a worker
type testWork struct {
	index int // submission index, used to restore result ordering
	tc    types.TestCase
}

// testWorkResult carries a final test result back to the collecting loop
type testWorkResult struct {
	index  int
	result *types.TestResult
}

// ParallelExecutor runs a suite over a bounded worker pool. The concurrency
// width is a hard cap: a test case is sent to the pool only when fewer than
// width cases are in flight, so queued-but-unstarted work can still be
// skipped when the suite aborts.
//
// All results funnel through a single collecting goroutine (the loop in
// ExecuteSuite), which is the only writer of the SuiteResult.
type ParallelExecutor struct {
	retry       RetryCoordinator
	collector   ResultCollector
	concurrency int
	ui          ProgressIndicator
	log         log.Logger
}

// NewParallelExecutor creates a new parallel suite executor with validation
func NewParallelExecutor(retry RetryCoordinator, collector ResultCollector, concurrency int, ui ProgressIndicator, logger log.Logger) *ParallelExecutor {
	if retry == nil {
		panic("retry coordinator cannot be nil")
	}
	if collector == nil {
		panic("collector cannot be nil")
	}
	if concurrency < 1 {
		panic("concurrency must be >= 1")
	}
	if logger == nil {
		logger = log.New()
	}
	if concurrency > types.MaxReasonableConcurrency {
		logger.Warn("Very high concurrency requested", "concurrency", concurrency,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}

	return &ParallelExecutor{
		retry:       retry,
		collector:   collector,
		concurrency: concurrency,
		ui:          ui,
		log:         logger.New("component", "parallel-executor"),
	}
}

// ExecuteSuite runs all test cases and records final results in submission
// order. Completion order across test cases is not guaranteed; ordering is
// restored by the collector.
func (pe *ParallelExecutor) ExecuteSuite(ctx context.Context, suite types.TestSuite, cfg types.SuiteConfig, result *SuiteResult) {
	n := len(suite.Cases)
	if n == 0 {
		pe.log.Debug("No test cases to execute")
		return
	}

	pe.log.Info("Starting parallel suite execution", "totalTests", n, "concurrency", pe.concurrency)

	workChan := make(chan testWork, pe.concurrency)
	resultChan := make(chan testWorkResult, pe.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < pe.concurrency; i++ {
		wg.Add(1)
		go pe.worker(ctx, &wg, i, workChan, resultChan)
	}

	known := knownIDs(suite)
	final := make(map[string]types.TestStatus, n)
	pending := make([]int, 0, n)
	for i := range suite.Cases {
		pending = append(pending, i)
	}

	finished := 0
	inflight := 0
	aborted := false

	// finalizeSkip records a final skipped result without dispatching.
	finalizeSkip := func(idx int, reason string) {
		tc := suite.Cases[idx]
		tr := types.NewSkippedResult(tc, reason)
		final[tc.ID] = tr.Status
		pe.collector.Add(result, idx, tr)
		finished++
		if pe.ui != nil {
			pe.ui.UpdateTest(tc.GetName(), tr.Status)
		}
	}

	// dispatch walks the pending list in submission order, finalizing
	// skips and sending ready work while worker slots are free. Skip
	// decisions can unblock further decisions (a skipped dependency fails
	// its dependents), so the caller loops until a pass changes nothing.
	dispatch := func() (progressed bool) {
		keep := pending[:0]
		for _, idx := range pending {
			tc := suite.Cases[idx]
			switch {
			case aborted:
				finalizeSkip(idx, types.SkipReasonSuiteAborted)
				progressed = true
			case tc.Disabled:
				finalizeSkip(idx, types.SkipReasonDisabled)
				progressed = true
			default:
				switch checkDependencies(tc, final, known) {
				case depUnsatisfied:
					finalizeSkip(idx, types.SkipReasonDependency)
					progressed = true
				case depReady:
					if inflight < pe.concurrency {
						if pe.ui != nil {
							pe.ui.StartTest(tc.GetName())
						}
						workChan <- testWork{index: idx, tc: tc}
						inflight++
						progressed = true
					} else {
						keep = append(keep, idx)
					}
				default: // depWaiting
					keep = append(keep, idx)
				}
			}
		}
		pending = keep
		return progressed
	}

	for finished < n {
		for dispatch() {
		}

		if finished == n {
			break
		}

		// Nothing in flight and nothing dispatchable means the remaining
		// cases wait on each other (a dependency cycle); they can never
		// run.
		if inflight == 0 {
			pe.log.Warn("Unresolvable dependencies detected, skipping remaining tests", "remaining", len(pending))
			for _, idx := range pending {
				finalizeSkip(idx, types.SkipReasonDependency)
			}
			pending = nil
			continue
		}

		select {
		case wr := <-resultChan:
			final[wr.result.Case.ID] = wr.result.Status
			pe.collector.Add(result, wr.index, wr.result)
			finished++
			inflight--
			if pe.ui != nil {
				pe.ui.UpdateTest(wr.result.Case.GetName(), wr.result.Status)
			}
			if cfg.FailFast && wr.result.Status.IsFailure() && !aborted {
				pe.log.Warn("Aborting suite after failure",
					"test", wr.result.Case.GetName(), "status", wr.result.Status)
				aborted = true
			}
		case <-ctx.Done():
			pe.log.Warn("Context canceled during parallel execution", "error", ctx.Err())
			// In-flight work is abandoned; everything without a final
			// result is recorded as skipped so the caller still receives
			// a complete result set.
			for _, idx := range pending {
				finalizeSkip(idx, fmt.Sprintf("run canceled: %v", ctx.Err()))
			}
			pending = nil
			for idx, tc := range suite.Cases {
				if _, done := final[tc.ID]; !done {
					finalizeSkip(idx, fmt.Sprintf("run canceled: %v", ctx.Err()))
				}
			}
		}
	}

	close(workChan)
	wg.Wait()
	close(resultChan)
}

// worker processes test work items until the work channel closes or the
// context is canceled
func (pe *ParallelExecutor) worker(ctx context.Context, wg *sync.WaitGroup, id int, workChan <-chan testWork, resultChan chan<- testWorkResult) {
	defer wg.Done()

	workerID := fmt.Sprintf("worker-%d", id)
	pe.log.Debug("Worker starting", "workerID", workerID)
	defer pe.log.Debug("Worker exiting", "workerID", workerID)

	for {
		select {
		case work, ok := <-workChan:
			if !ok {
				return
			}

			pe.log.Debug("Worker processing test", "workerID", workerID, "test", work.tc.GetName())
			tr := pe.retry.Run(ctx, work.tc)

			select {
			case resultChan <- testWorkResult{index: work.index, result: tr}:
			case <-ctx.Done():
				pe.log.Debug("Context canceled while sending result", "workerID", workerID, "test", work.tc.GetName())
				return
			}

		case <-ctx.Done():
			pe.log.Debug("Worker received context cancellation", "workerID", workerID)
			return
		}
	}
}

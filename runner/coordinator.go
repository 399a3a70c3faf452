package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/device-infra/app-acceptor/types"
)

// depDecision is the dependency-gating verdict for a test case at a given
// point in the run.
type depDecision int

const (
	depReady depDecision = iota // all dependencies passed
	depWaiting                  // at least one dependency has no final result yet
	depUnsatisfied              // a dependency finished without passing, or is unknown
)

// checkDependencies inspects the final statuses recorded so far. known holds
// the IDs of every test case in the suite; a dependency outside it can never
// be satisfied.
func checkDependencies(tc types.TestCase, final map[string]types.TestStatus, known map[string]struct{}) depDecision {
	for _, dep := range tc.DependsOn {
		if _, ok := known[dep]; !ok {
			return depUnsatisfied
		}
		status, done := final[dep]
		if !done {
			return depWaiting
		}
		if status != types.TestStatusPass {
			return depUnsatisfied
		}
	}
	return depReady
}

// knownIDs collects the set of test case IDs in a suite
func knownIDs(suite types.TestSuite) map[string]struct{} {
	ids := make(map[string]struct{}, len(suite.Cases))
	for _, tc := range suite.Cases {
		ids[tc.ID] = struct{}{}
	}
	return ids
}

// serialCoordinator runs a suite strictly one test case after another, in
// submission order.
type serialCoordinator struct {
	retry     RetryCoordinator
	collector ResultCollector
	ui        ProgressIndicator
	log       log.Logger
}

// newSerialCoordinator creates the serial execution path
func newSerialCoordinator(retry RetryCoordinator, collector ResultCollector, ui ProgressIndicator, logger log.Logger) *serialCoordinator {
	return &serialCoordinator{
		retry:     retry,
		collector: collector,
		ui:        ui,
		log:       logger,
	}
}

// ExecuteSuite drives every test case in order and records final results.
// In serial mode a dependency that has not yet run when its dependent is
// reached (a forward reference in submission order) counts as unsatisfied.
// Once the context is canceled, no further lifecycle action runs; every
// remaining case is recorded as skipped so the result set stays complete.
func (sc *serialCoordinator) ExecuteSuite(ctx context.Context, suite types.TestSuite, cfg types.SuiteConfig, result *SuiteResult) {
	known := knownIDs(suite)
	final := make(map[string]types.TestStatus, len(suite.Cases))
	aborted := false

	for i, tc := range suite.Cases {
		var tr *types.TestResult
		switch {
		case ctx.Err() != nil:
			tr = types.NewSkippedResult(tc, fmt.Sprintf("run canceled: %v", ctx.Err()))
		case aborted:
			tr = types.NewSkippedResult(tc, types.SkipReasonSuiteAborted)
		case tc.Disabled:
			tr = types.NewSkippedResult(tc, types.SkipReasonDisabled)
		case checkDependencies(tc, final, known) != depReady:
			tr = types.NewSkippedResult(tc, types.SkipReasonDependency)
		default:
			if sc.ui != nil {
				sc.ui.StartTest(tc.GetName())
			}
			tr = sc.retry.Run(ctx, tc)
		}

		final[tc.ID] = tr.Status
		sc.collector.Add(result, i, tr)
		if sc.ui != nil {
			sc.ui.UpdateTest(tc.GetName(), tr.Status)
		}

		if cfg.FailFast && tr.Status.IsFailure() {
			sc.log.Warn("Aborting suite after failure", "test", tc.GetName(), "status", tr.Status)
			aborted = true
		}
	}
}

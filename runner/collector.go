package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/device-infra/app-acceptor/types"
)

var _ ResultCollector = (*resultCollector)(nil)

// ResultCollector handles aggregation of final test results into a
// SuiteResult. Implementations are not required to be safe for concurrent
// use: the scheduler funnels all results to a single collecting goroutine,
// which is the only writer.
type ResultCollector interface {
	// Initialize a new suite result with room for total test cases
	NewSuiteResult(runID string, suiteName string, total int, isParallel bool) *SuiteResult

	// Add records the final result for the test case at the given
	// submission index
	Add(result *SuiteResult, index int, tr *types.TestResult)

	// Finalize computes statistics, wall-clock time and overall status
	Finalize(result *SuiteResult)
}

// ResultStats tracks per-status counts for a suite run. TimedOut and
// SetupFailed are kept as distinct buckets; FailedTotal folds them into the
// failure count for reporting.
type ResultStats struct {
	Total       int
	Passed      int
	Failed      int
	TimedOut    int
	SetupFailed int
	Skipped     int
	StartTime   time.Time
	EndTime     time.Time
}

// FailedTotal returns the number of tests that finished in any failing
// state, including timeouts and setup failures.
func (s ResultStats) FailedTotal() int {
	return s.Failed + s.TimedOut + s.SetupFailed
}

// SuccessRate returns the percentage of passed tests. An empty suite has a
// success rate of 0, not a division error.
func (s ResultStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// SuiteResult captures the complete outcome of one suite run. Results are
// ordered by submission, regardless of completion order under parallel
// execution.
type SuiteResult struct {
	RunID         string
	SuiteName     string
	Results       []*types.TestResult
	Status        types.TestStatus
	Stats         ResultStats
	Duration      time.Duration // sum of per-test cumulative execution times
	WallClockTime time.Duration
	IsParallel    bool
}

// resultCollector implements ResultCollector
type resultCollector struct{}

// NewResultCollector creates a new result collector
func NewResultCollector() ResultCollector {
	return &resultCollector{}
}

// NewSuiteResult initializes a new suite result
func (c *resultCollector) NewSuiteResult(runID string, suiteName string, total int, isParallel bool) *SuiteResult {
	return &SuiteResult{
		RunID:      runID,
		SuiteName:  suiteName,
		Results:    make([]*types.TestResult, total),
		Status:     types.TestStatusSkip,
		IsParallel: isParallel,
		Stats: ResultStats{
			StartTime: time.Now(),
		},
	}
}

// Add records the final result at its submission index
func (c *resultCollector) Add(result *SuiteResult, index int, tr *types.TestResult) {
	if result == nil {
		panic("result cannot be nil")
	}
	if tr == nil {
		panic("test result cannot be nil")
	}
	if index < 0 || index >= len(result.Results) {
		panic(fmt.Sprintf("result index %d out of range [0,%d)", index, len(result.Results)))
	}
	if result.Results[index] != nil {
		panic(fmt.Sprintf("duplicate result for index %d (test %s)", index, tr.Case.ID))
	}

	result.Results[index] = tr
	result.Stats.Total++
	switch tr.Status {
	case types.TestStatusPass:
		result.Stats.Passed++
	case types.TestStatusFail:
		result.Stats.Failed++
	case types.TestStatusTimeout:
		result.Stats.TimedOut++
	case types.TestStatusSetupFailed:
		result.Stats.SetupFailed++
	case types.TestStatusSkip:
		result.Stats.Skipped++
	}
	result.Duration += tr.Duration
}

// Finalize calculates the final status and wall-clock time
func (c *resultCollector) Finalize(result *SuiteResult) {
	result.Stats.EndTime = time.Now()
	result.WallClockTime = result.Stats.EndTime.Sub(result.Stats.StartTime)
	result.Status = determineSuiteStatus(result)
}

// determineSuiteStatus returns the overall status. Failures take priority
// over skips; a suite in which every test was skipped (or which had no tests
// at all) reports skip rather than pass.
func determineSuiteStatus(result *SuiteResult) types.TestStatus {
	anyFailed := false
	allSkipped := true
	for _, tr := range result.Results {
		if tr == nil {
			continue
		}
		if tr.Status.IsFailure() {
			anyFailed = true
		}
		if tr.Status != types.TestStatusSkip {
			allSkipped = false
		}
	}
	if anyFailed {
		return types.TestStatusFail
	}
	if allSkipped {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the suite results
func (r *SuiteResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Suite Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d, Success rate: %.2f%%\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.FailedTotal(), r.Stats.Skipped, r.Stats.SuccessRate()))

	for i, tr := range r.Results {
		if tr == nil {
			continue
		}
		prefix := "├──"
		if i == len(r.Results)-1 {
			prefix = "└──"
		}
		b.WriteString(fmt.Sprintf("%s Test: %s (%s) [status=%s, attempts=%d]\n",
			prefix, tr.Case.GetName(), formatDuration(tr.Duration), tr.Status, tr.AttemptCount()))
		if tr.Err != nil {
			b.WriteString(fmt.Sprintf("│       └── Error: %s\n", tr.Err.Error()))
		}
		if tr.SkipReason != "" {
			b.WriteString(fmt.Sprintf("│       └── Reason: %s\n", tr.SkipReason))
		}
	}
	return b.String()
}

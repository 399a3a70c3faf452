package types

import "time"

// Skip reasons recorded on test results that never entered execution.
const (
	SkipReasonSuiteAborted = "suite aborted after prior failure"
	SkipReasonDependency   = "dependency not satisfied"
	SkipReasonDisabled     = "test disabled"
)

// Attempt records one execution of a test case's lifecycle. Attempts are
// write-once: the executor produces exactly one per invocation and never
// mutates it afterwards.
type Attempt struct {
	Index  int // 1-based
	Start  time.Time
	End    time.Time
	Status TestStatus
	Err    error
}

// Duration returns the wall-clock time the attempt took.
func (a Attempt) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// TestResult is the final outcome for a test case after all attempts are
// exhausted, or after the scheduler decided to skip it.
type TestResult struct {
	Case       TestCase
	Status     TestStatus
	Err        error // last attempt's error, nil for pass/skip
	SkipReason string
	Duration   time.Duration // cumulative across attempts
	Attempts   []Attempt     // ordered history, empty for skipped cases
}

// AttemptCount returns the number of attempts actually made.
func (tr *TestResult) AttemptCount() int {
	return len(tr.Attempts)
}

// Passed reports whether the final status is pass.
func (tr *TestResult) Passed() bool {
	return tr.Status == TestStatusPass
}

// NewSkippedResult builds a final result for a test case that never ran.
func NewSkippedResult(tc TestCase, reason string) *TestResult {
	return &TestResult{
		Case:       tc,
		Status:     TestStatusSkip,
		SkipReason: reason,
	}
}

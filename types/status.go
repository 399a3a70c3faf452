// Package types contains shared types used across the aat testing framework
package types

// TestStatus represents the possible final states of a test execution
type TestStatus string

const (
	TestStatusPass        TestStatus = "pass"
	TestStatusFail        TestStatus = "fail"
	TestStatusTimeout     TestStatus = "timeout"
	TestStatusSetupFailed TestStatus = "setup_failed"
	TestStatusSkip        TestStatus = "skip"
)

// String implements the Stringer interface for TestStatus
func (s TestStatus) String() string {
	return string(s)
}

// IsFailure reports whether the status counts as a failure for
// stop-on-first-failure and exit-code purposes. Skips are not failures.
func (s TestStatus) IsFailure() bool {
	switch s {
	case TestStatusFail, TestStatusTimeout, TestStatusSetupFailed:
		return true
	default:
		return false
	}
}

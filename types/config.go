package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
// It is the only class of error that escapes RunSuite/RunTest.
var ErrInvalidConfig = errors.New("invalid suite configuration")

const (
	// DefaultTestTimeout is the default timeout for individual tests
	DefaultTestTimeout = 10 * time.Minute

	// DefaultRetryDelay is the default wait between retry attempts
	DefaultRetryDelay = time.Second

	// MaxReasonableConcurrency caps requested concurrency to avoid
	// resource exhaustion on the device host
	MaxReasonableConcurrency = 32
)

// SuiteConfig carries the run configuration shared by all test cases in a
// suite. It is validated exactly once, before any test runs; an invalid
// configuration fails fast with no side effects.
type SuiteConfig struct {
	// Serial forces strict one-after-another execution in submission order.
	Serial bool

	// Concurrency is the hard cap on simultaneously running test cases in
	// parallel mode. Ignored when Serial is set.
	Concurrency int

	// Timeout is the default per-test timeout, overridable per test case.
	Timeout time.Duration

	// RetryLimit is the default number of retries after a failed attempt
	// (so RetryLimit+1 attempts total), overridable per test case.
	RetryLimit int

	// RetryDelay is the wait between attempts of the same test case.
	RetryDelay time.Duration

	// FailFast stops dispatching new test cases after the first final
	// non-passing result. In-flight test cases finish naturally.
	FailFast bool
}

// DefaultSuiteConfig returns the configuration used when the caller supplies
// nothing: sequential execution, no retries.
func DefaultSuiteConfig() SuiteConfig {
	return SuiteConfig{
		Serial:      true,
		Concurrency: 1,
		Timeout:     DefaultTestTimeout,
		RetryLimit:  0,
		RetryDelay:  DefaultRetryDelay,
	}
}

// Validate checks the configuration invariants. It must be called before
// execution begins; the runner refuses to start on error.
func (c SuiteConfig) Validate() error {
	if !c.Serial && c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0, got %v", ErrInvalidConfig, c.Timeout)
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("%w: retry limit must be >= 0, got %d", ErrInvalidConfig, c.RetryLimit)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be >= 0, got %v", ErrInvalidConfig, c.RetryDelay)
	}
	return nil
}

// EffectiveTimeout resolves the timeout for a single test case.
func (c SuiteConfig) EffectiveTimeout(tc TestCase) time.Duration {
	if tc.Timeout > 0 {
		return tc.Timeout
	}
	return c.Timeout
}

// EffectiveRetryLimit resolves the retry limit for a single test case.
func (c SuiteConfig) EffectiveRetryLimit(tc TestCase) int {
	if tc.RetryLimit != nil {
		return *tc.RetryLimit
	}
	return c.RetryLimit
}

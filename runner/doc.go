// Package runner orchestrates the execution of application test suites.
//
// It schedules test cases either serially or over a bounded worker pool,
// races each attempt against a per-test timeout, retries failing attempts
// according to the suite's retry policy, and aggregates every final outcome
// into a SuiteResult ordered by submission. The only shared mutable state in
// a run is the result collection, which is written by a single goroutine fed
// over a channel.
package runner

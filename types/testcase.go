package types

import (
	"context"
	"fmt"
	"time"
)

// Action is an opaque, fallible lifecycle callable supplied by the caller.
// It may drive UI automation, make network calls or run assertions; the
// orchestrator only observes the returned error. Actions must honor
// cancellation of the passed context: a timed-out body is abandoned
// cooperatively, never terminated forcefully.
type Action func(ctx context.Context) error

// Category classifies a test case. The set is closed; use Tags for
// free-form labels.
type Category string

const (
	CategoryFunctional    Category = "functional"
	CategorySmoke         Category = "smoke"
	CategoryRegression    Category = "regression"
	CategoryPerformance   Category = "performance"
	CategoryAccessibility Category = "accessibility"
)

// IsValid reports whether the category is one of the known values.
// An empty category is valid and treated as functional.
func (c Category) IsValid() bool {
	switch c {
	case "", CategoryFunctional, CategorySmoke, CategoryRegression,
		CategoryPerformance, CategoryAccessibility:
		return true
	default:
		return false
	}
}

// Priority expresses how important a test case is to the suite owner.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid reports whether the priority is one of the known values.
// An empty priority is valid and treated as medium.
func (p Priority) IsValid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// TestCase is the immutable description of a single test. Values are
// constructed by the caller before a run starts and are never mutated by
// the orchestrator, so they may be shared freely across workers.
type TestCase struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Priority    Priority
	Tags        []string

	// Lifecycle actions. Setup and Teardown are optional; Body is required
	// for any enabled test case.
	Setup    Action
	Body     Action
	Teardown Action

	// Timeout overrides the suite default when > 0.
	Timeout time.Duration

	// RetryLimit overrides the suite default when non-nil.
	RetryLimit *int

	// DependsOn lists IDs of test cases that must pass before this one
	// is dispatched.
	DependsOn []string

	// Disabled test cases are recorded as skipped without ever running.
	Disabled bool
}

// GetName returns a display name for the test case, falling back to the ID
func (tc TestCase) GetName() string {
	if tc.Name != "" {
		return tc.Name
	}
	return tc.ID
}

// TestSuite is an ordered collection of test cases. Submission order is
// significant: sequential runs execute in this order, and aggregated results
// are always reported in this order.
type TestSuite struct {
	Name  string
	Cases []TestCase
}

// Validate checks the structural invariants of the suite: every case has a
// non-empty unique ID, an executable body when enabled, and known
// category/priority values.
func (s TestSuite) Validate() error {
	seen := make(map[string]struct{}, len(s.Cases))
	for i, tc := range s.Cases {
		if tc.ID == "" {
			return fmt.Errorf("%w: test case at index %d has no ID", ErrInvalidConfig, i)
		}
		if _, ok := seen[tc.ID]; ok {
			return fmt.Errorf("%w: duplicate test case ID %q", ErrInvalidConfig, tc.ID)
		}
		seen[tc.ID] = struct{}{}

		if tc.Body == nil && !tc.Disabled {
			return fmt.Errorf("%w: test case %q has no body", ErrInvalidConfig, tc.ID)
		}
		if !tc.Category.IsValid() {
			return fmt.Errorf("%w: test case %q has unknown category %q", ErrInvalidConfig, tc.ID, tc.Category)
		}
		if !tc.Priority.IsValid() {
			return fmt.Errorf("%w: test case %q has unknown priority %q", ErrInvalidConfig, tc.ID, tc.Priority)
		}
		if tc.RetryLimit != nil && *tc.RetryLimit < 0 {
			return fmt.Errorf("%w: test case %q has negative retry limit", ErrInvalidConfig, tc.ID)
		}
		for _, dep := range tc.DependsOn {
			if dep == tc.ID {
				return fmt.Errorf("%w: test case %q depends on itself", ErrInvalidConfig, tc.ID)
			}
		}
	}
	return nil
}

package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/device-infra/app-acceptor/types"
)

// StabilityResult represents aggregated results for a test case across
// multiple runs of the same suite.
type StabilityResult struct {
	TestID         string        `json:"test_id"`
	TestName       string        `json:"test_name"`
	TotalRuns      int           `json:"total_runs"`
	Passes         int           `json:"passes"`
	Failures       int           `json:"failures"`
	Skipped        int           `json:"skipped"`
	PassRate       float64       `json:"pass_rate"`
	AvgDuration    time.Duration `json:"avg_duration"`
	MinDuration    time.Duration `json:"min_duration"`
	MaxDuration    time.Duration `json:"max_duration"`
	Recommendation string        `json:"recommendation"`
}

// StabilityReport contains the complete repeated-run analysis for a suite
type StabilityReport struct {
	SuiteName   string            `json:"suite_name"`
	Iterations  int               `json:"iterations"`
	TotalRuns   int               `json:"total_runs"`
	Tests       []StabilityResult `json:"tests"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// StabilityRunner wraps a TestRunner to measure test stability by running
// the same suite repeatedly and tracking per-test pass rates.
type StabilityRunner struct {
	baseRunner TestRunner
	iterations int
	log        log.Logger
}

// NewStabilityRunner creates a new stability runner
func NewStabilityRunner(baseRunner TestRunner, iterations int, logger log.Logger) *StabilityRunner {
	if logger == nil {
		logger = log.New()
	}
	return &StabilityRunner{
		baseRunner: baseRunner,
		iterations: iterations,
		log:        logger,
	}
}

// Run executes the suite the configured number of times and aggregates the
// per-test outcomes into a stability report. A failing iteration does not
// stop the analysis.
func (s *StabilityRunner) Run(ctx context.Context, suite types.TestSuite, cfg types.SuiteConfig) (*StabilityReport, error) {
	s.log.Info("Starting stability analysis", "suite", suite.Name, "iterations", s.iterations)

	results := make(map[string][]*types.TestResult)
	order := make(map[string]int)

	for i := 1; i <= s.iterations; i++ {
		s.log.Info("Running iteration", "iteration", i, "total", s.iterations)

		suiteResult, err := s.baseRunner.RunSuite(ctx, suite, cfg)
		if err != nil {
			// Configuration errors cannot resolve themselves between
			// iterations.
			return nil, fmt.Errorf("stability iteration %d: %w", i, err)
		}

		for idx, tr := range suiteResult.Results {
			results[tr.Case.ID] = append(results[tr.Case.ID], tr)
			order[tr.Case.ID] = idx
		}
	}

	return s.generateReport(suite.Name, results, order), nil
}

// generateReport creates a StabilityReport from aggregated test results
func (s *StabilityRunner) generateReport(suiteName string, results map[string][]*types.TestResult, order map[string]int) *StabilityReport {
	report := &StabilityReport{
		SuiteName:   suiteName,
		Iterations:  s.iterations,
		GeneratedAt: time.Now(),
	}

	for id, testResults := range results {
		result := StabilityResult{
			TestID:      id,
			TestName:    testResults[0].Case.GetName(),
			TotalRuns:   len(testResults),
			MinDuration: time.Hour, // start with a large value
		}

		var totalDuration time.Duration
		for _, tr := range testResults {
			switch {
			case tr.Status == types.TestStatusPass:
				result.Passes++
			case tr.Status == types.TestStatusSkip:
				result.Skipped++
			default:
				result.Failures++
			}

			totalDuration += tr.Duration
			if tr.Duration < result.MinDuration {
				result.MinDuration = tr.Duration
			}
			if tr.Duration > result.MaxDuration {
				result.MaxDuration = tr.Duration
			}
		}

		if result.TotalRuns > 0 {
			result.AvgDuration = totalDuration / time.Duration(result.TotalRuns)
			result.PassRate = float64(result.Passes) / float64(result.TotalRuns) * 100
		}

		// Simple binary classification
		if result.Failures == 0 {
			result.Recommendation = "STABLE"
		} else {
			result.Recommendation = "UNSTABLE"
		}

		report.Tests = append(report.Tests, result)
		report.TotalRuns += result.TotalRuns
	}

	// Keep the suite's submission order in the report.
	sort.Slice(report.Tests, func(i, j int) bool {
		return order[report.Tests[i].TestID] < order[report.Tests[j].TestID]
	})

	return report
}

// String renders the report as a table for console output
func (r *StabilityReport) String() string {
	var b strings.Builder
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetTitle(fmt.Sprintf("Stability Report: %s (%d iterations)", r.SuiteName, r.Iterations))
	t.AppendHeader(table.Row{"Test", "Runs", "Passes", "Failures", "Pass Rate", "Avg Duration", "Recommendation"})

	for _, tr := range r.Tests {
		t.AppendRow(table.Row{
			tr.TestName,
			tr.TotalRuns,
			tr.Passes,
			tr.Failures,
			fmt.Sprintf("%.1f%%", tr.PassRate),
			tr.AvgDuration.Truncate(time.Millisecond),
			tr.Recommendation,
		})
	}

	t.Render()
	return b.String()
}

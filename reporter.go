package aat

import (
	"github.com/device-infra/app-acceptor/metrics"
	"github.com/device-infra/app-acceptor/runner"
)

// MetricsReporter is responsible for reporting metrics from suite results.
type MetricsReporter interface {
	ReportResults(result *runner.SuiteResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the suite results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(result *runner.SuiteResult) {
	retries := 0
	for _, tr := range result.Results {
		metrics.RecordTestResult(result.SuiteName, result.RunID, tr.Case.ID, tr.Status)
		if n := tr.AttemptCount(); n > 1 {
			retries += n - 1
		}
	}

	metrics.RecordSuiteRun(
		result.SuiteName,
		result.RunID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.FailedTotal(),
		retries,
		result.Duration,
	)
}

package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/device-infra/app-acceptor/types"
)

const (
	MetricsNamespace = "aat"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{
		types.TestStatusPass,
		types.TestStatusFail,
		types.TestStatusTimeout,
		types.TestStatusSetupFailed,
		types.TestStatusSkip,
	}
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "test_results_total",
		Help:      "Count of final test results",
	}, []string{
		"suite",
		"run_id",
		"test",
		"result",
	})

	suiteResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_results",
		Help:      "Result of suite runs",
	}, []string{
		"suite",
		"run_id",
		"result",
	})

	suiteTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_test_total",
		Help:      "Total number of tests in suite runs",
	}, []string{
		"suite",
		"run_id",
	})

	suiteTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_test_passed",
		Help:      "Number of passed tests in suite runs",
	}, []string{
		"suite",
		"run_id",
	})

	suiteTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_test_failed",
		Help:      "Number of failed tests in suite runs",
	}, []string{
		"suite",
		"run_id",
	})

	suiteTestRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_test_retries",
		Help:      "Number of retry attempts in suite runs",
	}, []string{
		"suite",
		"run_id",
	})

	suiteDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_duration",
		Help:      "Cumulative test execution time of suite runs",
	}, []string{
		"suite",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordTestResult records the final outcome of a single test case
func RecordTestResult(suite string, runID string, testName string, result types.TestStatus) {
	if !isValidResult(result) {
		log.Error("RecordTestResult - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "test_results_total",
			"suite", suite,
			"run_id", runID,
			"test", testName,
			"result", result)
	}
	testResultsTotal.WithLabelValues(suite, runID, testName, string(result)).Inc()
}

// RecordSuiteRun records the aggregate outcome of a suite run
func RecordSuiteRun(
	suite string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	retries int,
	duration time.Duration,
) {
	suiteResults.WithLabelValues(suite, runID, result).Set(1)
	suiteTestTotal.WithLabelValues(suite, runID).Add(float64(total))
	suiteTestPassed.WithLabelValues(suite, runID).Add(float64(passed))
	suiteTestFailed.WithLabelValues(suite, runID).Add(float64(failed))
	suiteTestRetries.WithLabelValues(suite, runID).Add(float64(retries))
	suiteDuration.WithLabelValues(suite, runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}

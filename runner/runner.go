package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/device-infra/app-acceptor/types"
)

var _ TestRunner = (*testRunner)(nil)

// TestRunner is the public entry point of the orchestrator.
//
// Nothing escapes RunSuite or RunTest except configuration validation
// errors (wrapping types.ErrInvalidConfig): every test-level failure is
// captured inside the returned results, so for any valid configuration the
// caller always receives a complete, inspectable result set.
type TestRunner interface {
	// RunSuite validates the configuration, runs the suite to completion
	// and returns the aggregated result in submission order.
	RunSuite(ctx context.Context, suite types.TestSuite, cfg types.SuiteConfig) (*SuiteResult, error)

	// RunTest is a convenience wrapper equivalent to running a one-element
	// suite.
	RunTest(ctx context.Context, tc types.TestCase, cfg types.SuiteConfig) (*types.TestResult, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Log log.Logger
	UI  ProgressIndicator // optional; defaults to no-op
}

// testRunner implements TestRunner
type testRunner struct {
	log    log.Logger
	ui     ProgressIndicator
	tracer trace.Tracer
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.UI == nil {
		cfg.UI = NewNoOpProgressIndicator()
	}

	return &testRunner{
		log:    cfg.Log,
		ui:     cfg.UI,
		tracer: otel.Tracer("app-acceptor/runner"),
	}, nil
}

// RunSuite implements the TestRunner interface
func (r *testRunner) RunSuite(ctx context.Context, suite types.TestSuite, cfg types.SuiteConfig) (*SuiteResult, error) {
	// Fail fast, before any side effects.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	isParallel := !cfg.Serial

	ctx, span := r.tracer.Start(ctx, "run_suite", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("suite", suite.Name),
		attribute.Int("total_tests", len(suite.Cases)),
		attribute.Bool("parallel", isParallel),
	))
	defer span.End()

	r.log.Info("Starting suite run",
		"run_id", runID,
		"suite", suite.Name,
		"totalTests", len(suite.Cases),
		"parallel", isParallel,
		"failFast", cfg.FailFast)

	collector := NewResultCollector()
	result := collector.NewSuiteResult(runID, suite.Name, len(suite.Cases), isParallel)

	if len(suite.Cases) > 0 {
		executor := NewLifecycleExecutor(r.log)
		retry := NewRetryCoordinator(executor, cfg, r.log)

		r.ui.StartSuite(suite.Name, len(suite.Cases))
		if cfg.Serial {
			newSerialCoordinator(retry, collector, r.ui, r.log).ExecuteSuite(ctx, suite, cfg, result)
		} else {
			NewParallelExecutor(retry, collector, cfg.Concurrency, r.ui, r.log).ExecuteSuite(ctx, suite, cfg, result)
		}
		r.ui.CompleteSuite(suite.Name)
	}

	collector.Finalize(result)

	r.log.Info("Suite run completed",
		"run_id", runID,
		"status", result.Status,
		"passed", result.Stats.Passed,
		"failed", result.Stats.FailedTotal(),
		"skipped", result.Stats.Skipped,
		"wallClock", result.WallClockTime)

	return result, nil
}

// RunTest implements the TestRunner interface
func (r *testRunner) RunTest(ctx context.Context, tc types.TestCase, cfg types.SuiteConfig) (*types.TestResult, error) {
	suite := types.TestSuite{
		Name:  fmt.Sprintf("single:%s", tc.GetName()),
		Cases: []types.TestCase{tc},
	}

	result, err := r.RunSuite(ctx, suite, cfg)
	if err != nil {
		return nil, err
	}
	return result.Results[0], nil
}

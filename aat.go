// Package aat wires the test registry, runner, scheduler and reporting
// together into the App Acceptance Tester service.
package aat

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/device-infra/app-acceptor/exitcodes"
	"github.com/device-infra/app-acceptor/registry"
	"github.com/device-infra/app-acceptor/runner"
	"github.com/device-infra/app-acceptor/types"
)

// acceptor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &acceptor{}

// acceptor is an App Acceptance Tester that runs test suites.
type acceptor struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	runner    runner.TestRunner
	scheduler RunScheduler
	formatter ResultFormatter
	reporter  MetricsReporter
	result    *runner.SuiteResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error), reg *registry.Registry) (*acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if reg == nil {
		return nil, errors.New("registry is required")
	}

	config.Log.Debug("Creating acceptor with config",
		"planPath", config.PlanPath,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"stability", config.Stability)

	var ui runner.ProgressIndicator
	if config.ShowProgress {
		ui = runner.NewConsoleProgressIndicator(config.Log, config.ProgressInterval)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Log: config.Log,
		UI:  ui,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	config.Log.Info("aat.New: created test runner", "registeredTests", len(reg.TestCases()))

	return &acceptor{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           testRunner,
		scheduler:        NewIntervalScheduler(config.RunInterval, config.RunOnce, config.Log),
		formatter:        NewConsoleResultFormatter(config.Log),
		reporter:         NewDefaultMetricsReporter(),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the acceptance suite once or periodically at the configured
// interval. Start implements the cliapp.Lifecycle interface.
func (a *acceptor) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			a.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	a.ctx = ctx

	if a.config.Stability {
		// Stability analysis is a one-shot operation regardless of the
		// configured interval.
		a.config.Log.Info("Starting app-acceptor in stability mode", "iterations", a.config.StabilityIterations)
		err := a.runStability()
		if err != nil {
			a.config.Log.Error("Runtime error running stability analysis", "error", err)
			return cli.Exit(err.Error(), exitcodes.RuntimeErr)
		}
		go func() {
			a.shutdownCallback(nil)
		}()
		return nil
	}

	if a.config.RunOnce {
		a.config.Log.Info("Starting app-acceptor in run-once mode")
	} else {
		a.config.Log.Info("Starting app-acceptor in continuous mode", "interval", a.config.RunInterval)
	}

	a.scheduler.RegisterCallback(a.runTests)
	err := a.scheduler.Start(ctx)
	if err != nil {
		// For runtime errors (like configuration issues), return exit code 2
		a.config.Log.Error("Runtime error running tests", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	// If in run-once mode, trigger shutdown and return
	if a.config.RunOnce {
		a.config.Log.Info("Tests completed, exiting (run-once mode)")

		// Check if any tests failed and return appropriate exit code
		if a.result != nil && a.result.Status == types.TestStatusFail {
			a.config.Log.Warn("Run-once test run completed with failures, returning exit code 1")
			return NewTestFailureError(a.result.String())
		}

		// Only need to call this when we're in run-once mode and all tests passed
		go func() {
			a.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	a.config.Log.Debug("app-acceptor started successfully")
	return nil
}

// runTests loads the plan, runs the suite and processes the results
func (a *acceptor) runTests() error {
	suite, cfg, err := a.loadPlan()
	if err != nil {
		return NewRuntimeError(err)
	}

	result, err := a.runner.RunSuite(a.ctx, suite, cfg)
	if err != nil {
		// This is a runtime error (not a test failure)
		a.config.Log.Error("Runtime error running suite", "error", err)
		return NewRuntimeError(err)
	}
	a.result = result

	if err := a.formatter.FormatResults(result); err != nil {
		a.config.Log.Error("Error formatting results", "error", err)
	}
	fmt.Println(result.String())
	a.reporter.ReportResults(result)

	a.config.Log.Info("Suite run completed", "run_id", result.RunID, "status", result.Status)
	return nil
}

// runStability runs the suite repeatedly and prints the flakiness report
func (a *acceptor) runStability() error {
	suite, cfg, err := a.loadPlan()
	if err != nil {
		return NewRuntimeError(err)
	}

	stability := runner.NewStabilityRunner(a.runner, a.config.StabilityIterations, a.config.Log)
	report, err := stability.Run(a.ctx, suite, cfg)
	if err != nil {
		return NewRuntimeError(err)
	}

	fmt.Println(report.String())
	return nil
}

// loadPlan reads the plan file and layers the CLI overrides on top of the
// plan's suite configuration.
func (a *acceptor) loadPlan() (types.TestSuite, types.SuiteConfig, error) {
	suite, cfg, err := a.registry.LoadPlan(a.config.PlanPath)
	if err != nil {
		a.config.Log.Error("Failed to load test plan", "path", a.config.PlanPath, "error", err)
		return types.TestSuite{}, types.SuiteConfig{}, err
	}
	return suite, a.config.Overrides.Apply(cfg), nil
}

// Stop stops the app-acceptor service.
// Stop implements the cliapp.Lifecycle interface.
func (a *acceptor) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping app-acceptor")

	if a.scheduler.Stopped() {
		a.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	if err := a.scheduler.Stop(); err != nil {
		return err
	}

	a.config.Log.Info("app-acceptor stopped successfully")
	return nil
}

// Stopped returns true if the app-acceptor service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (a *acceptor) Stopped() bool {
	return a.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (a *acceptor) WaitForShutdown(ctx context.Context) error {
	return a.scheduler.WaitForShutdown(ctx)
}

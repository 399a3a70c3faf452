package aat

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/device-infra/app-acceptor/flags"
	"github.com/device-infra/app-acceptor/types"
	"github.com/ethereum/go-ethereum/log"
)

// SuiteOverrides holds CLI-level overrides for the suite configuration
// loaded from the plan file. Only fields the operator actually set on the
// command line are non-nil; the plan keeps the final word on everything
// else.
type SuiteOverrides struct {
	Serial      *bool
	Concurrency *int
	Timeout     *time.Duration
	RetryLimit  *int
	RetryDelay  *time.Duration
	FailFast    *bool
}

// Apply layers the overrides on top of a suite configuration
func (o SuiteOverrides) Apply(cfg types.SuiteConfig) types.SuiteConfig {
	if o.Serial != nil {
		cfg.Serial = *o.Serial
	}
	if o.Concurrency != nil {
		cfg.Concurrency = *o.Concurrency
		if o.Serial == nil {
			// Asking for workers implies parallel mode.
			cfg.Serial = false
		}
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.RetryLimit != nil {
		cfg.RetryLimit = *o.RetryLimit
	}
	if o.RetryDelay != nil {
		cfg.RetryDelay = *o.RetryDelay
	}
	if o.FailFast != nil {
		cfg.FailFast = *o.FailFast
	}
	return cfg
}

// Config holds the application configuration
type Config struct {
	PlanPath            string
	RunInterval         time.Duration // Interval between test runs
	RunOnce             bool          // Indicates if the service should exit after one test run
	Overrides           SuiteOverrides
	ShowProgress        bool          // Whether to show periodic progress updates during test execution
	ProgressInterval    time.Duration // Interval between progress updates when ShowProgress is 'true'
	Stability           bool          // Enable stability mode for test flakiness analysis
	StabilityIterations int           // Number of suite runs in stability mode
	Log                 log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, planPath string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if planPath == "" {
		return nil, errors.New("test plan file is required")
	}

	absPlanPath, err := filepath.Abs(planPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for plan file '%s': %w", planPath, err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	var overrides SuiteOverrides
	if ctx.IsSet(flags.Serial.Name) {
		v := ctx.Bool(flags.Serial.Name)
		overrides.Serial = &v
	}
	if ctx.IsSet(flags.Concurrency.Name) {
		v := ctx.Int(flags.Concurrency.Name)
		overrides.Concurrency = &v
	}
	if ctx.IsSet(flags.DefaultTimeout.Name) {
		v := ctx.Duration(flags.DefaultTimeout.Name)
		overrides.Timeout = &v
	}
	if ctx.IsSet(flags.RetryLimit.Name) {
		v := ctx.Int(flags.RetryLimit.Name)
		overrides.RetryLimit = &v
	}
	if ctx.IsSet(flags.RetryDelay.Name) {
		v := ctx.Duration(flags.RetryDelay.Name)
		overrides.RetryDelay = &v
	}
	if ctx.IsSet(flags.FailFast.Name) {
		v := ctx.Bool(flags.FailFast.Name)
		overrides.FailFast = &v
	}

	return &Config{
		PlanPath:            absPlanPath,
		RunInterval:         runInterval,
		RunOnce:             runOnce,
		Overrides:           overrides,
		ShowProgress:        ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval:    ctx.Duration(flags.ProgressInterval.Name),
		Stability:           ctx.Bool(flags.Stability.Name),
		StabilityIterations: ctx.Int(flags.StabilityIterations.Name),
		Log:                 log,
	}, nil
}

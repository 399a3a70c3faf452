package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	"github.com/device-infra/app-acceptor/types"
)

const EnvVarPrefix = "APP_ACCEPTOR"

var (
	Plan = &cli.StringFlag{
		Name:     "plan",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "PLAN"),
		Usage:    "Path to the test plan file (eg. 'plan.yaml')",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	Serial = &cli.BoolFlag{
		Name:    "serial",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERIAL"),
		Usage:   "Run tests strictly one after another in submission order",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCURRENCY"),
		Usage:   "Maximum number of test cases running at the same time",
	}
	DefaultTimeout = &cli.DurationFlag{
		Name:    "default-timeout",
		Value:   types.DefaultTestTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEFAULT_TIMEOUT"),
		Usage:   "Default timeout for individual tests, can be overridden per test",
	}
	RetryLimit = &cli.IntFlag{
		Name:    "retry-limit",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RETRY_LIMIT"),
		Usage:   "Default number of retries after a failed attempt",
	}
	RetryDelay = &cli.DurationFlag{
		Name:    "retry-delay",
		Value:   types.DefaultRetryDelay,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RETRY_DELAY"),
		Usage:   "Wait between attempts of the same test",
	}
	FailFast = &cli.BoolFlag{
		Name:    "fail-fast",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_FAST"),
		Usage:   "Stop dispatching new tests after the first failure",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Show periodic progress updates during test execution",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when show-progress is enabled",
	}
	Stability = &cli.BoolFlag{
		Name:    "stability",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STABILITY"),
		Usage:   "Enable stability mode: run the suite repeatedly and report per-test pass rates",
	}
	StabilityIterations = &cli.IntFlag{
		Name:    "stability-iterations",
		Value:   10,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STABILITY_ITERATIONS"),
		Usage:   "Number of suite runs in stability mode",
	}
)

var requiredFlags = []cli.Flag{
	Plan,
}

var optionalFlags = []cli.Flag{
	RunInterval,
	Serial,
	Concurrency,
	DefaultTimeout,
	RetryLimit,
	RetryDelay,
	FailFast,
	ShowProgress,
	ProgressInterval,
	Stability,
	StabilityIterations,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

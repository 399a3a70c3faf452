package aat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/device-infra/app-acceptor/registry"
	"github.com/device-infra/app-acceptor/types"
)

func testConfig(t *testing.T, planPath string) *Config {
	t.Helper()
	return &Config{
		PlanPath: planPath,
		RunOnce:  true,
		Log:      log.New(),
	}
}

func writeTestPlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func passingRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry(registry.Config{Log: log.New()})
	reg.MustRegister(types.TestCase{
		ID:   "passes",
		Body: func(ctx context.Context) error { return nil },
	})
	return reg
}

func TestNew_Validation(t *testing.T) {
	reg := passingRegistry(t)

	_, err := New(context.Background(), nil, "v0.0.0", func(error) {}, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")

	_, err = New(context.Background(), testConfig(t, "plan.yaml"), "v0.0.0", func(error) {}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry is required")
}

func TestAcceptor_RunOnceSuccess(t *testing.T) {
	plan := writeTestPlan(t, `suite: smoke`)
	reg := passingRegistry(t)

	shutdownCalled := make(chan struct{})
	svc, err := New(context.Background(), testConfig(t, plan), "v0.0.0", func(error) {
		close(shutdownCalled)
	}, reg)
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.NoError(t, err)

	require.NotNil(t, svc.result)
	assert.Equal(t, types.TestStatusPass, svc.result.Status)
	assert.Equal(t, 1, svc.result.Stats.Passed)

	select {
	case <-shutdownCalled:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback was never invoked after a passing run-once")
	}
}

func TestAcceptor_RunOnceTestFailure(t *testing.T) {
	plan := writeTestPlan(t, `suite: smoke`)

	reg := registry.NewRegistry(registry.Config{Log: log.New()})
	reg.MustRegister(types.TestCase{
		ID:   "fails",
		Body: func(ctx context.Context) error { return errors.New("broken") },
	})

	svc, err := New(context.Background(), testConfig(t, plan), "v0.0.0", func(error) {}, reg)
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err), "test failures map to exit code 1 via TestFailureError")
}

func TestAcceptor_RunOnceMissingPlanIsRuntimeError(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "nope.yaml"))
	reg := passingRegistry(t)

	svc, err := New(context.Background(), cfg, "v0.0.0", func(error) {}, reg)
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode(), "runtime errors map to exit code 2")
}

func TestAcceptor_PlanOverridesFromCLI(t *testing.T) {
	plan := writeTestPlan(t, `
suite: smoke
config:
  retry_limit: 0
`)
	reg := registry.NewRegistry(registry.Config{Log: log.New()})

	calls := 0
	reg.MustRegister(types.TestCase{
		ID: "flaky",
		Body: func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("first attempt fails")
			}
			return nil
		},
	})

	cfg := testConfig(t, plan)
	retries := 1
	delay := time.Millisecond
	cfg.Overrides = SuiteOverrides{RetryLimit: &retries, RetryDelay: &delay}

	svc, err := New(context.Background(), cfg, "v0.0.0", func(error) {}, reg)
	require.NoError(t, err)

	err = svc.Start(context.Background())
	require.NoError(t, err, "the CLI retry override should let the flaky test pass")
	assert.Equal(t, 2, calls)
}

func TestAcceptor_StopIsIdempotent(t *testing.T) {
	plan := writeTestPlan(t, `suite: smoke`)
	reg := passingRegistry(t)

	svc, err := New(context.Background(), testConfig(t, plan), "v0.0.0", func(error) {}, reg)
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	assert.True(t, svc.Stopped())
}

func TestAcceptor_StabilityMode(t *testing.T) {
	plan := writeTestPlan(t, `suite: smoke`)
	reg := passingRegistry(t)

	cfg := testConfig(t, plan)
	cfg.Stability = true
	cfg.StabilityIterations = 2

	shutdownCalled := make(chan struct{})
	svc, err := New(context.Background(), cfg, "v0.0.0", func(error) {
		close(shutdownCalled)
	}, reg)
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))

	select {
	case <-shutdownCalled:
	case <-time.After(time.Second):
		t.Fatal("stability mode must shut down after the analysis")
	}
}

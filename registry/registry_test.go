package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/device-infra/app-acceptor/types"
)

func noopAction(ctx context.Context) error { return nil }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(Config{Log: log.New()})
	reg.MustRegister(types.TestCase{ID: "login", Name: "Login flow", Body: noopAction})
	reg.MustRegister(types.TestCase{ID: "checkout", Name: "Checkout flow", Body: noopAction})
	reg.MustRegister(types.TestCase{ID: "settings", Body: noopAction})
	return reg
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry(Config{Log: log.New()})

	require.NoError(t, reg.Register(types.TestCase{ID: "a", Body: noopAction}))

	err := reg.Register(types.TestCase{ID: "a", Body: noopAction})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	err = reg.Register(types.TestCase{Body: noopAction})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have an ID")
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry(Config{Log: log.New()})
	reg.MustRegister(types.TestCase{ID: "a", Body: noopAction})
	assert.Panics(t, func() {
		reg.MustRegister(types.TestCase{ID: "a", Body: noopAction})
	})
}

func TestRegistry_TestCasesKeepRegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t)

	cases := reg.TestCases()
	require.Len(t, cases, 3)
	assert.Equal(t, "login", cases[0].ID)
	assert.Equal(t, "checkout", cases[1].ID)
	assert.Equal(t, "settings", cases[2].ID)
}

func TestRegistry_BuildSuite(t *testing.T) {
	reg := newTestRegistry(t)

	suite := reg.BuildSuite("all")
	assert.Equal(t, "all", suite.Name)
	assert.Len(t, suite.Cases, 3)
	require.NoError(t, suite.Validate())
}

func TestRegistry_LoadPlan(t *testing.T) {
	reg := newTestRegistry(t)

	path := writePlan(t, `
suite: nightly
config:
  concurrency: 4
  timeout: 30s
  retry_limit: 2
  retry_delay: 500ms
  fail_fast: true
cases:
  - id: login
  - id: checkout
    timeout: 2m
    retry_limit: 0
    depends_on: [login]
    priority: critical
`)

	suite, cfg, err := reg.LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", suite.Name)
	require.Len(t, suite.Cases, 2)

	// Asking for workers implies parallel mode.
	assert.False(t, cfg.Serial)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.RetryLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.FailFast)

	login := suite.Cases[0]
	assert.Equal(t, "login", login.ID)
	assert.Zero(t, login.Timeout, "no override leaves the case untouched")

	checkout := suite.Cases[1]
	assert.Equal(t, 2*time.Minute, checkout.Timeout)
	require.NotNil(t, checkout.RetryLimit)
	assert.Equal(t, 0, *checkout.RetryLimit)
	assert.Equal(t, []string{"login"}, checkout.DependsOn)
	assert.Equal(t, types.PriorityCritical, checkout.Priority)
}

func TestRegistry_LoadPlanDefaults(t *testing.T) {
	reg := newTestRegistry(t)

	// A plan without config or case list selects everything with defaults.
	path := writePlan(t, `suite: everything`)

	suite, cfg, err := reg.LoadPlan(path)
	require.NoError(t, err)

	assert.Len(t, suite.Cases, 3)
	assert.Equal(t, types.DefaultSuiteConfig(), cfg)
}

func TestRegistry_LoadPlanExplicitSerialWithConcurrency(t *testing.T) {
	reg := newTestRegistry(t)

	path := writePlan(t, `
suite: serial
config:
  serial: true
  concurrency: 4
`)

	_, cfg, err := reg.LoadPlan(path)
	require.NoError(t, err)

	assert.True(t, cfg.Serial, "an explicit serial: true wins over concurrency")
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestRegistry_LoadPlanUnknownCase(t *testing.T) {
	reg := newTestRegistry(t)

	path := writePlan(t, `
suite: broken
cases:
  - id: does-not-exist
`)

	_, _, err := reg.LoadPlan(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestRegistry_LoadPlanUnknownField(t *testing.T) {
	reg := newTestRegistry(t)

	path := writePlan(t, `
suite: typo
config:
  concurency: 4
`)

	_, _, err := reg.LoadPlan(path)
	require.Error(t, err, "unknown fields in plan files must fail loudly")
}

func TestRegistry_LoadPlanBadDuration(t *testing.T) {
	reg := newTestRegistry(t)

	path := writePlan(t, `
suite: bad
config:
  timeout: fast
`)

	_, _, err := reg.LoadPlan(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestRegistry_LoadPlanMissingFile(t *testing.T) {
	reg := newTestRegistry(t)

	_, _, err := reg.LoadPlan(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read plan file")
}

func TestRegistry_LoadPlanDisableCase(t *testing.T) {
	reg := newTestRegistry(t)

	path := writePlan(t, `
suite: partial
cases:
  - id: login
  - id: checkout
    disabled: true
`)

	suite, _, err := reg.LoadPlan(path)
	require.NoError(t, err)

	assert.False(t, suite.Cases[0].Disabled)
	assert.True(t, suite.Cases[1].Disabled)
}

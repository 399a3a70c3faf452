package aat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/device-infra/app-acceptor/exitcodes"
)

func TestRuntimeError(t *testing.T) {
	inner := errors.New("plan file not found")
	err := NewRuntimeError(inner)

	assert.Contains(t, err.Error(), "runtime error")
	assert.Contains(t, err.Error(), "plan file not found")
	assert.ErrorIs(t, err, inner)

	assert.True(t, IsRuntimeError(err))
	assert.True(t, IsRuntimeError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsRuntimeError(inner))
	assert.False(t, IsRuntimeError(nil))
}

func TestTestFailureError(t *testing.T) {
	err := NewTestFailureError("3 tests failed")

	assert.Contains(t, err.Error(), "test failure")
	assert.Contains(t, err.Error(), "3 tests failed")

	assert.True(t, IsTestFailureError(err))
	assert.True(t, IsTestFailureError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsTestFailureError(errors.New("other")))
	assert.False(t, IsTestFailureError(nil))
}

func TestErrorsCarryExitCodes(t *testing.T) {
	var runtime cli.ExitCoder = NewRuntimeError(errors.New("bad config"))
	var failure cli.ExitCoder = NewTestFailureError("2 tests failed")

	assert.Equal(t, exitcodes.RuntimeErr, runtime.ExitCode())
	assert.Equal(t, exitcodes.TestFailure, failure.ExitCode())
}

func TestErrorTypesAreDistinct(t *testing.T) {
	runtime := NewRuntimeError(errors.New("boom"))
	failure := NewTestFailureError("boom")

	require.False(t, IsTestFailureError(runtime))
	require.False(t, IsRuntimeError(failure))
}

package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopAction(ctx context.Context) error { return nil }

func TestSuiteValidate(t *testing.T) {
	negative := -1

	tests := []struct {
		name    string
		suite   TestSuite
		wantErr string
	}{
		{
			name: "valid suite",
			suite: TestSuite{
				Name: "smoke",
				Cases: []TestCase{
					{ID: "login", Body: noopAction},
					{ID: "checkout", Body: noopAction, DependsOn: []string{"login"}},
				},
			},
		},
		{
			name: "empty suite is valid",
			suite: TestSuite{
				Name: "empty",
			},
		},
		{
			name: "missing ID",
			suite: TestSuite{
				Cases: []TestCase{{Body: noopAction}},
			},
			wantErr: "has no ID",
		},
		{
			name: "duplicate ID",
			suite: TestSuite{
				Cases: []TestCase{
					{ID: "login", Body: noopAction},
					{ID: "login", Body: noopAction},
				},
			},
			wantErr: "duplicate test case ID",
		},
		{
			name: "enabled case without body",
			suite: TestSuite{
				Cases: []TestCase{{ID: "login"}},
			},
			wantErr: "has no body",
		},
		{
			name: "disabled case without body is valid",
			suite: TestSuite{
				Cases: []TestCase{{ID: "login", Disabled: true}},
			},
		},
		{
			name: "unknown category",
			suite: TestSuite{
				Cases: []TestCase{{ID: "login", Body: noopAction, Category: "chaos"}},
			},
			wantErr: "unknown category",
		},
		{
			name: "unknown priority",
			suite: TestSuite{
				Cases: []TestCase{{ID: "login", Body: noopAction, Priority: "urgent"}},
			},
			wantErr: "unknown priority",
		},
		{
			name: "negative retry limit",
			suite: TestSuite{
				Cases: []TestCase{{ID: "login", Body: noopAction, RetryLimit: &negative}},
			},
			wantErr: "negative retry limit",
		},
		{
			name: "self dependency",
			suite: TestSuite{
				Cases: []TestCase{{ID: "login", Body: noopAction, DependsOn: []string{"login"}}},
			},
			wantErr: "depends on itself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.suite.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTestCaseGetName(t *testing.T) {
	assert.Equal(t, "Login flow", TestCase{ID: "login", Name: "Login flow"}.GetName())
	assert.Equal(t, "login", TestCase{ID: "login"}.GetName())
}

func TestCategoryIsValid(t *testing.T) {
	assert.True(t, Category("").IsValid())
	assert.True(t, CategorySmoke.IsValid())
	assert.True(t, CategoryAccessibility.IsValid())
	assert.False(t, Category("chaos").IsValid())
}

func TestPriorityIsValid(t *testing.T) {
	assert.True(t, Priority("").IsValid())
	assert.True(t, PriorityCritical.IsValid())
	assert.False(t, Priority("urgent").IsValid())
}

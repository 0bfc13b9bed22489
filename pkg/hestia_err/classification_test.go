// pkg/hestia_err/classification_test.go
package hestia_err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: 0,
		},
		{
			name:     "validation error",
			err:      NewValidationError("bad port"),
			expected: 2,
		},
		{
			name:     "permission error",
			err:      NewPermissionError("need root"),
			expected: 1,
		},
		{
			name:     "dependency error",
			err:      NewDependencyError("apt failed", errors.New("exit 100")),
			expected: 1,
		},
		{
			name:     "tls error",
			err:      NewTLSError("cert generation failed", errors.New("boom")),
			expected: 1,
		},
		{
			name:     "system error",
			err:      NewSystemError("mkdir failed", errors.New("read-only fs")),
			expected: 1,
		},
		{
			name:     "expected user error",
			err:      NewUserError("pick a different port"),
			expected: 2,
		},
		{
			name:     "plain error",
			err:      errors.New("whatever"),
			expected: 1,
		},
		{
			name:     "wrapped classified error",
			err:      fmt.Errorf("outer: %w", NewValidationError("inner")),
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetExitCode(tt.err))
		})
	}
}

func TestClassifiedErrorMessage(t *testing.T) {
	err := NewDependencyError("vault package installation failed",
		errors.New("apt-get exited 100"),
		"check network access",
		"run apt-get update manually")

	msg := err.Error()
	assert.Contains(t, msg, "vault package installation failed")
	assert.Contains(t, msg, "Cause: apt-get exited 100")
	assert.Contains(t, msg, "How to fix:")
	assert.Contains(t, msg, "1. check network access")
	assert.Contains(t, msg, "2. run apt-get update manually")
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewSystemError("outer", cause)

	assert.ErrorIs(t, err, cause)
}

func TestIsExpectedUserError(t *testing.T) {
	assert.False(t, IsExpectedUserError(nil))
	assert.False(t, IsExpectedUserError(errors.New("plain")))
	assert.True(t, IsExpectedUserError(NewUserError("expected")))
	assert.True(t, IsExpectedUserError(fmt.Errorf("wrap: %w", NewExpectedError(errors.New("inner")))))
	assert.Nil(t, NewExpectedError(nil))
}

func TestUserErrorPreservesMessage(t *testing.T) {
	err := NewUserError("port %d is reserved", 22)
	require.Error(t, err)
	assert.Equal(t, "port 22 is reserved", err.Error())
}

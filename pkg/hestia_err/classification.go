// pkg/hestia_err/classification.go
//
// Error classification with proper exit codes. Provisioning failures divide
// into fatal categories (abort the run) and advisory outcomes (recorded in the
// run report, never returned as errors).

package hestia_err

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies fatal errors for appropriate handling
type ErrorCategory int

const (
	// CategorySystem - OS/filesystem issues (exit 1)
	CategorySystem ErrorCategory = iota
	// CategoryValidation - Input validation failures (exit 2)
	CategoryValidation
	// CategoryPermission - Insufficient privilege (exit 1)
	CategoryPermission
	// CategoryDependency - Package/repository installation failures (exit 1)
	CategoryDependency
	// CategoryTLS - Certificate generation or missing material (exit 1)
	CategoryTLS
	// CategoryInternal - Bugs in hestia itself (exit 3)
	CategoryInternal
)

// ClassifiedError wraps an error with category and remediation info
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
}

func (e *ClassifiedError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf("\n\nCause: %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	return sb.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error category
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryInternal:
		return 3
	default:
		return 1
	}
}

// GetExitCode extracts exit code from any error.
// Returns 0 for nil, appropriate code for classified errors, 1 for others.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}

	if IsExpectedUserError(err) {
		return 2
	}

	return 1
}

// NewPermissionError creates an error for insufficient privilege
func NewPermissionError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryPermission,
		Message:     message,
		Remediation: remediation,
	}
}

// NewDependencyError creates an error for package installation failures
func NewDependencyError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryDependency,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewTLSError creates an error for certificate generation or missing material
func NewTLSError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryTLS,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Remediation: remediation,
	}
}

// NewSystemError creates an error for OS/filesystem failures
func NewSystemError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategorySystem,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

package errors

import (
	"errors"
	"fmt"
)

// EngineError is the structured error type for the retrieval engine.
// It carries enough context for logging and for callers to branch on
// error codes without string matching.
type EngineError struct {
	// Code is the unique error code (e.g., "ERR_501_NO_INDEX_AVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Provider, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *EngineError) WithDetail(key, value string) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new EngineError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EngineError from an existing error.
// The error's message becomes the EngineError message.
func Wrap(code string, err error) *EngineError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NoIndexAvailable is returned when a query arrives before any successful
// build for the project. Callers recover by returning empty results.
func NoIndexAvailable(projectID string) *EngineError {
	return New(ErrCodeNoIndexAvailable,
		fmt.Sprintf("no index has been published for project %q", projectID), nil).
		WithDetail("project_id", projectID)
}

// BuildFailed wraps a build error. The previously published version keeps
// serving, so this is recoverable.
func BuildFailed(projectID string, cause error) *EngineError {
	return New(ErrCodeBuildFailed,
		fmt.Sprintf("index build failed for project %q", projectID), cause).
		WithDetail("project_id", projectID)
}

// EmbeddingUnavailable wraps a transient embedding-provider failure.
func EmbeddingUnavailable(cause error) *EngineError {
	return New(ErrCodeEmbeddingUnavailable, "embedding provider unavailable", cause)
}

// PublishConflict is returned when a non-ready version is offered for
// publication. This is a programming-contract violation.
func PublishConflict(projectID string, versionID int64, status string) *EngineError {
	return New(ErrCodePublishConflict,
		fmt.Sprintf("cannot publish version %d for project %q: status is %s, want ready",
			versionID, projectID, status), nil).
		WithDetail("project_id", projectID)
}

// ErrConcurrentBuildRejected signals that a build is already in flight for
// the project. It is flow control, not a failure: callers rely on the
// orchestrator re-checking dirtiness once the in-flight build finishes.
var ErrConcurrentBuildRejected = errors.New("build already in progress")

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// IsCode reports whether err is an EngineError with the given code.
func IsCode(err error, code string) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// GetCode extracts the error code from an EngineError.
// Returns empty string if not an EngineError.
func GetCode(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

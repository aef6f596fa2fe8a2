// Package errors provides structured error handling for askbase.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage/IO errors
//   - 3XX: Embedding-provider errors
//   - 4XX: Validation errors
//   - 5XX: Index lifecycle errors
package errors

import "strings"

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index-store and content-store I/O errors.
	CategoryStorage Category = "STORAGE"
	// CategoryProvider indicates embedding-provider errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryIndex indicates index lifecycle errors.
	CategoryIndex Category = "INDEX"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates a contract violation, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the engine can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStorageWrite  = "ERR_201_STORAGE_WRITE"
	ErrCodeStorageRead   = "ERR_202_STORAGE_READ"
	ErrCodeContentSource = "ERR_203_CONTENT_SOURCE"
	ErrCodeDataDirLocked = "ERR_204_DATA_DIR_LOCKED"

	// Provider errors (300-399)
	ErrCodeEmbeddingUnavailable = "ERR_301_EMBEDDING_UNAVAILABLE"
	ErrCodeEmbeddingTimeout     = "ERR_302_EMBEDDING_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeUnknownProject = "ERR_402_UNKNOWN_PROJECT"
	ErrCodeQueryEmpty     = "ERR_403_QUERY_EMPTY"

	// Index lifecycle errors (500-599)
	ErrCodeNoIndexAvailable = "ERR_501_NO_INDEX_AVAILABLE"
	ErrCodeBuildFailed      = "ERR_502_BUILD_FAILED"
	ErrCodePublishConflict  = "ERR_503_PUBLISH_CONFLICT"
	ErrCodeVersionNotFound  = "ERR_504_VERSION_NOT_FOUND"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryIndex
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryIndex
	}
}

// severityFromCode derives severity from error code.
// PublishConflict is a programming-contract violation and fatal; provider
// errors are warnings because the engine degrades rather than fails.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodePublishConflict:
		return SeverityFatal
	case ErrCodeEmbeddingUnavailable, ErrCodeEmbeddingTimeout, ErrCodeNoIndexAvailable:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether operations failing with this code can be retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingUnavailable, ErrCodeEmbeddingTimeout, ErrCodeBuildFailed, ErrCodeStorageWrite:
		return true
	default:
		return strings.HasPrefix(code, "ERR_3")
	}
}

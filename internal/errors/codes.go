// Package errors provides structured error handling for kbsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index and file I/O errors
//   - 3XX: Knowledge base registry errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index, file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryRegistry indicates knowledge base lifecycle errors.
	CategoryRegistry Category = "REGISTRY"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index and IO errors (200-299)
	ErrCodeIndexFailed      = "ERR_201_INDEX_FAILED"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeIndexLocked      = "ERR_203_INDEX_LOCKED"
	ErrCodeCorruptIndex     = "ERR_205_CORRUPT_INDEX"
	ErrCodeExtractionFailed = "ERR_206_EXTRACTION_FAILED"

	// Registry errors (300-399)
	ErrCodeDuplicateName   = "ERR_301_DUPLICATE_NAME"
	ErrCodeNotFound        = "ERR_302_KB_NOT_FOUND"
	ErrCodeDisabledBase    = "ERR_303_KB_DISABLED"
	ErrCodeRegistryCorrupt = "ERR_304_REGISTRY_CORRUPT"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery = "ERR_402_INVALID_QUERY"
	ErrCodeInvalidPath  = "ERR_406_INVALID_PATH"
	ErrCodeInvalidName  = "ERR_407_INVALID_NAME"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "301" from "ERR_301_DUPLICATE_NAME")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryRegistry
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeRegistryCorrupt:
		return SeverityFatal
	case ErrCodeExtractionFailed:
		// Per-file failures are skipped, the build continues.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	return code == ErrCodeIndexLocked
}

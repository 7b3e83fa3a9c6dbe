package errors

import (
	stderrors "errors"
	"fmt"
)

// KBError is the structured error type for kbsearch.
// It provides rich context for error handling, logging, and user presentation.
type KBError struct {
	// Code is the unique error code (e.g., "ERR_302_KB_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Registry, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is matching. Matching is by code only, so any
// KBError carrying the same code satisfies errors.Is(err, ErrNotFound).
var (
	ErrDuplicateName = &KBError{Code: ErrCodeDuplicateName}
	ErrNotFound      = &KBError{Code: ErrCodeNotFound}
	ErrDisabledBase  = &KBError{Code: ErrCodeDisabledBase}
	ErrInvalidPath   = &KBError{Code: ErrCodeInvalidPath}
	ErrInvalidName   = &KBError{Code: ErrCodeInvalidName}
	ErrInvalidQuery  = &KBError{Code: ErrCodeInvalidQuery}
	ErrCorruptIndex  = &KBError{Code: ErrCodeCorruptIndex}
	ErrExtraction    = &KBError{Code: ErrCodeExtractionFailed}
	ErrIndexLocked   = &KBError{Code: ErrCodeIndexLocked}
)

// Error implements the error interface.
func (e *KBError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *KBError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with KBError.
func (e *KBError) Is(target error) bool {
	if t, ok := target.(*KBError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *KBError) WithDetail(key, value string) *KBError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *KBError) WithSuggestion(suggestion string) *KBError {
	e.Suggestion = suggestion
	return e
}

// New creates a new KBError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *KBError {
	return &KBError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a KBError from an existing error.
// The error's message becomes the KBError message.
func Wrap(code string, err error) *KBError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// DuplicateNameError reports an add of a knowledge base name that is already registered.
func DuplicateNameError(name string) *KBError {
	return New(ErrCodeDuplicateName, fmt.Sprintf("knowledge base %q already exists", name), nil).
		WithDetail("name", name).
		WithSuggestion("choose another name or remove the existing knowledge base first")
}

// NotFoundError reports an unknown knowledge base name.
func NotFoundError(name string) *KBError {
	return New(ErrCodeNotFound, fmt.Sprintf("knowledge base %q not found", name), nil).
		WithDetail("name", name).
		WithSuggestion("run 'kbsearch list' to see registered knowledge bases")
}

// DisabledBaseError reports an explicit search against a disabled knowledge base.
func DisabledBaseError(name string) *KBError {
	return New(ErrCodeDisabledBase, fmt.Sprintf("knowledge base %q is disabled", name), nil).
		WithDetail("name", name).
		WithSuggestion(fmt.Sprintf("run 'kbsearch enable %s' to search it", name))
}

// InvalidPathError reports a source path that is missing or not a directory.
func InvalidPathError(path string, cause error) *KBError {
	return New(ErrCodeInvalidPath, fmt.Sprintf("invalid source path %q", path), cause).
		WithDetail("path", path)
}

// InvalidNameError reports a knowledge base name that cannot be used.
func InvalidNameError(name, reason string) *KBError {
	return New(ErrCodeInvalidName, fmt.Sprintf("invalid knowledge base name %q: %s", name, reason), nil).
		WithDetail("name", name)
}

// InvalidQueryError reports an empty query or a non-positive limit.
func InvalidQueryError(message string) *KBError {
	return New(ErrCodeInvalidQuery, message, nil)
}

// CorruptIndexError reports a persisted index that failed validation on load.
func CorruptIndexError(path string, cause error) *KBError {
	return New(ErrCodeCorruptIndex, fmt.Sprintf("index missing or rebuild required: %s", path), cause).
		WithDetail("path", path).
		WithSuggestion("run 'kbsearch index --force' to rebuild it")
}

// ExtractionError reports a file whose text could not be extracted.
func ExtractionError(path string, cause error) *KBError {
	msg := fmt.Sprintf("failed to extract text from %s", path)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return New(ErrCodeExtractionFailed, msg, cause).WithDetail("path", path)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *KBError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *KBError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first KBError in err's chain.
func As(err error) (*KBError, bool) {
	var ke *KBError
	if stderrors.As(err, &ke) {
		return ke, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ke, ok := As(err); ok {
		return ke.Retryable
	}
	return false
}

// GetCode extracts the error code from a KBError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if ke, ok := As(err); ok {
		return ke.Code
	}
	return ""
}

// GetCategory extracts the category from a KBError anywhere in the chain.
func GetCategory(err error) Category {
	if ke, ok := As(err); ok {
		return ke.Category
	}
	return ""
}

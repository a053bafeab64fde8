package errors

import (
	"fmt"
)

// PathRejectedMessage is the only text ever returned for a path-containment
// violation. It deliberately carries no detail: neither the attempted path
// nor its resolved form may be echoed back to the caller.
const PathRejectedMessage = "path rejected: outside registered source root"

// DexError is the structured error type for docdex.
// It carries enough context for handling, logging, and user presentation.
type DexError struct {
	// Code is the unique error code (e.g. "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Provider, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates the operation may succeed on retry.
	Retryable bool
}

// Error implements the error interface.
func (e *DexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DexError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against the canonical
// instances below.
func (e *DexError) Is(target error) bool {
	if t, ok := target.(*DexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *DexError) WithDetail(key, value string) *DexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a DexError with the given code and message.
// Category, severity, and the retryable flag are derived from the code.
func New(code string, message string, cause error) *DexError {
	return &DexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DexError from an existing error, reusing its message.
func Wrap(code string, err error) *DexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Canonical instances for errors.Is checks. Call sites either return these
// directly or construct a fresh error with the same code.
var (
	ErrSourceNotFound   = New(ErrCodeSourceNotFound, "source not found", nil)
	ErrSourceExists     = New(ErrCodeSourceExists, "source already registered", nil)
	ErrSourceRemoved    = New(ErrCodeSourceRemoved, "source has been removed", nil)
	ErrSourceNotWatched = New(ErrCodeSourceNotWatched, "source is not watched", nil)
	ErrQueueFull        = New(ErrCodeQueueFull, "change queue is full", nil)
	ErrInvalidRootPath  = New(ErrCodeInvalidRootPath, "invalid root path", nil)
	ErrChunkNotFound    = New(ErrCodeChunkNotFound, "chunk not found", nil)

	// ErrPathOutsideRoot is the security rejection. Its message is fixed;
	// return it as-is, never a derivative that names the path.
	ErrPathOutsideRoot = New(ErrCodePathOutsideRoot, PathRejectedMessage, nil)
)

// IsRetryable reports whether err is a DexError flagged retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DexError); ok {
		return de.Retryable
	}
	return false
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DexError); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" for non-DexError values.
func GetCode(err error) string {
	if de, ok := err.(*DexError); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category, or "" for non-DexError values.
func GetCategory(err error) Category {
	if de, ok := err.(*DexError); ok {
		return de.Category
	}
	return ""
}

// Package errors provides structured error handling for docdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and filesystem errors
//   - 3XX: Embedding provider errors
//   - 4XX: Validation and registry errors
//   - 5XX: Internal errors
package errors

// Category classifies errors for logging and handling decisions.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates filesystem and chunk-store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryProvider indicates embedding-provider errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation and registry errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the surrounding operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but callers can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound  = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid   = "ERR_102_CONFIG_INVALID"
	ErrCodeUnknownStrategy = "ERR_103_UNKNOWN_STRATEGY"
	ErrCodePreflightFailed = "ERR_104_PREFLIGHT_FAILED"

	// Storage errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeScanFailed     = "ERR_203_SCAN_FAILED"
	ErrCodeFileTooLarge   = "ERR_204_FILE_TOO_LARGE"
	ErrCodeReadFailed     = "ERR_205_READ_FAILED"
	ErrCodeChunkNotFound  = "ERR_206_CHUNK_NOT_FOUND"

	// Embedding provider errors (300-399)
	ErrCodeEmbedFailed         = "ERR_301_EMBED_FAILED"
	ErrCodeBatchMismatch       = "ERR_302_BATCH_MISMATCH"
	ErrCodeProviderUnavailable = "ERR_303_PROVIDER_UNAVAILABLE"

	// Validation and registry errors (400-499)
	ErrCodeInvalidRootPath  = "ERR_401_INVALID_ROOT_PATH"
	ErrCodeSourceExists     = "ERR_402_SOURCE_EXISTS"
	ErrCodeSourceNotFound   = "ERR_403_SOURCE_NOT_FOUND"
	ErrCodeSourceRemoved    = "ERR_404_SOURCE_REMOVED"
	ErrCodeSourceNotWatched = "ERR_405_SOURCE_NOT_WATCHED"
	ErrCodeQueueFull        = "ERR_406_QUEUE_FULL"
	ErrCodePathOutsideRoot  = "ERR_407_PATH_OUTSIDE_ROOT"
	ErrCodeInvalidInput     = "ERR_408_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal            = "ERR_501_INTERNAL"
	ErrCodeSearchFailed        = "ERR_502_SEARCH_FAILED"
	ErrCodeIndexFailed         = "ERR_503_INDEX_FAILED"
	ErrCodeSnapshotUnavailable = "ERR_504_SNAPSHOT_UNAVAILABLE"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// The numeric family sits at positions 4-6 (e.g. "201" in
	// "ERR_201_FILE_NOT_FOUND").
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
		return CategoryInternal
	}
}

// severityFromCode determines severity based on the error code.
func severityFromCode(code string) Severity {
	// Scan failures abort the whole IndexSource pass for that source.
	if code == ErrCodeScanFailed {
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode reports whether an error code represents a transient
// failure worth retrying. Batch-count mismatches are deterministic and
// therefore never retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedFailed, ErrCodeProviderUnavailable, ErrCodeReadFailed:
		return true
	default:
		return false
	}
}

package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Lifecycle violations
const (
	// ErrCodeAlreadyInitialized indicates Init was called twice on one pipeline.
	ErrCodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	// ErrCodeNotInitialized indicates an operation that needs a running producer was called before Init.
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"
	// ErrCodeNilUpstream indicates a multi-producer pipeline was built without an upstream pipeline.
	ErrCodeNilUpstream ErrorCode = "NIL_UPSTREAM"
)

// Cursor and reset violations
const (
	// ErrCodeNoCurrentItem indicates Value was called before Advance or after the end of the stream.
	ErrCodeNoCurrentItem ErrorCode = "NO_CURRENT_ITEM"
	// ErrCodeConcurrentReset indicates a read observed a reset that was still in flight.
	ErrCodeConcurrentReset ErrorCode = "CONCURRENT_RESET"
	// ErrCodeResetUnacknowledged indicates a reset was requested while a prior one was not acknowledged.
	ErrCodeResetUnacknowledged ErrorCode = "RESET_UNACKNOWLEDGED"
	// ErrCodeResetUnsupported indicates Reset was called on a pipeline whose source cannot rewind.
	ErrCodeResetUnsupported ErrorCode = "RESET_UNSUPPORTED"
)

// Producer and configuration errors
const (
	// ErrCodeProducerContract indicates a produce or transform function returned no cell for a live item.
	ErrCodeProducerContract ErrorCode = "PRODUCER_CONTRACT"
	// ErrCodeInvalidConfig indicates a configuration value failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

var usageCodes = map[ErrorCode]bool{
	ErrCodeAlreadyInitialized:  true,
	ErrCodeNotInitialized:      true,
	ErrCodeNilUpstream:         true,
	ErrCodeNoCurrentItem:       true,
	ErrCodeConcurrentReset:     true,
	ErrCodeResetUnacknowledged: true,
	ErrCodeResetUnsupported:    true,
	ErrCodeProducerContract:    true,
}

// IsUsageCode reports whether the code marks a programmer error.
// Errors with these codes are raised by panicking, never returned.
func IsUsageCode(code ErrorCode) bool {
	return usageCodes[code]
}

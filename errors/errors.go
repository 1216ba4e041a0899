package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Usage-contract constructors ---

// AlreadyInitialized reports a second Init on the named pipeline.
func AlreadyInitialized(pipeline string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyInitialized, Message: "Init can only be called once",
		Details: map[string]any{"pipeline": pipeline},
	}
}

// NotInitialized reports an operation that requires Init to have run.
func NotInitialized(operation string) *AppError {
	return &AppError{
		Code: ErrCodeNotInitialized, Message: fmt.Sprintf("%s called before Init", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NilUpstream reports a multi-producer pipeline constructed without a source.
func NilUpstream() *AppError {
	return &AppError{Code: ErrCodeNilUpstream, Message: "upstream pipeline must not be nil"}
}

// NoCurrentItem reports Value called at the beginning or end of the stream.
func NoCurrentItem() *AppError {
	return &AppError{Code: ErrCodeNoCurrentItem, Message: "Value called at beginning or end of stream"}
}

// ConcurrentReset reports a read that raced with Reset.
func ConcurrentReset() *AppError {
	return &AppError{Code: ErrCodeConcurrentReset, Message: "Reset must not be called concurrently with Next"}
}

// ResetUnacknowledged reports a reset request issued while a previous one is pending.
func ResetUnacknowledged() *AppError {
	return &AppError{Code: ErrCodeResetUnacknowledged, Message: "previous reset request was not acknowledged"}
}

// ResetUnsupported reports Reset on a source that cannot rewind.
func ResetUnsupported() *AppError {
	return &AppError{Code: ErrCodeResetUnsupported, Message: "Reset is not supported by this producer"}
}

// ProducerContract reports a produce or transform function that returned no cell.
func ProducerContract(reason string) *AppError {
	return &AppError{Code: ErrCodeProducerContract, Message: reason}
}

// InvalidConfig creates a configuration validation error.
func InvalidConfig(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: message}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// FromPanic converts a recovered panic value into an AppError.
// Values that are not errors are wrapped with an empty code.
func FromPanic(r any) (*AppError, bool) {
	switch v := r.(type) {
	case nil:
		return nil, false
	case *AppError:
		return v, true
	case error:
		if appErr, ok := AsAppError(v); ok {
			return appErr, true
		}
		return &AppError{Message: v.Error(), Cause: v}, false
	default:
		return &AppError{Message: fmt.Sprint(v)}, false
	}
}

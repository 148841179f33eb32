package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified error type of the harness.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status used when the error is written to a peer.
	HTTPStatus int `json:"-"`
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

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Lifecycle constructors ---

// StartupFailed reports that the engine listening on addr could not start.
func StartupFailed(addr string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStartupFailed, Message: fmt.Sprintf("server on %s failed to start", addr),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"addr": addr}, Cause: cause,
	}
}

// RestartTimeout reports that readiness did not return within the deadline.
func RestartTimeout(deadline time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRestartTimeout, Message: fmt.Sprintf("server not ready again after %s", deadline),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"deadline": deadline.String()},
	}
}

// ShutdownHang reports that the engine goroutines did not finish in time.
func ShutdownHang(cause error) *AppError {
	return &AppError{
		Code: ErrCodeShutdownHang, Message: "server goroutines did not terminate",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Stopped reports that the server stopped while the caller was waiting.
func Stopped() *AppError {
	return &AppError{
		Code: ErrCodeStopped, Message: "server is stopped",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
	}
}

// InvalidState reports an operation attempted in the wrong lifecycle state.
func InvalidState(op, state string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidState, Message: fmt.Sprintf("cannot %s while %s", op, state),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"operation": op, "state": state},
	}
}

// --- Request constructors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

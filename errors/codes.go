package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Lifecycle errors
const (
	// ErrCodeStartupFailed indicates the engine could not bind its listener
	// or load its TLS material. Fatal for the server handle.
	ErrCodeStartupFailed ErrorCode = "STARTUP_FAILED"
	// ErrCodeRestartTimeout indicates readiness was not observed again
	// within the caller's restart deadline.
	ErrCodeRestartTimeout ErrorCode = "RESTART_TIMEOUT"
	// ErrCodeShutdownHang indicates the engine goroutines did not finish
	// before the caller's context expired. Always a bug.
	ErrCodeShutdownHang ErrorCode = "SHUTDOWN_HANG"
	// ErrCodeStopped indicates the server was stopped while an operation
	// was waiting on it.
	ErrCodeStopped ErrorCode = "SERVER_STOPPED"
	// ErrCodeInvalidState indicates an operation is not allowed in the
	// current lifecycle state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:        true,
	ErrCodeRestartTimeout: false,
	ErrCodeStartupFailed:  false,
	ErrCodeInternal:       false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// The harness itself never retries; callers may.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

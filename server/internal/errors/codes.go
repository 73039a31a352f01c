package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for pipeline operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates missing or empty request input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeConversionFailed indicates the audio normalization backend failed.
	ErrCodeConversionFailed ErrorCode = "CONVERSION_FAILED"
	// ErrCodeTranscriptionFailed indicates the transcription engine failed.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeTimeout indicates an operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeSynthesisUnavailable indicates speech synthesis produced no audio.
	ErrCodeSynthesisUnavailable ErrorCode = "SYNTHESIS_UNAVAILABLE"
	// ErrCodeNotFound indicates the requested conversation or artifact does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unclassified internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// PipelineError represents a structured error for pipeline operations.
// The Cause carries the original failure detail for logs; callers receive
// only the Message.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// InvalidArgument creates a validation error.
func InvalidArgument(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ConversionFailed creates a conversion error.
func ConversionFailed(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeConversionFailed, Message: msg, Cause: cause}
}

// TranscriptionFailed creates a transcription error.
func TranscriptionFailed(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeTranscriptionFailed, Message: msg, Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeTimeout, Message: msg}
}

// NotFound creates a not-found error.
func NotFound(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeNotFound, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a PipelineError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Code
	}
	return defaultCode
}

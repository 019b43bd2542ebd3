package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// ErrorTypeTransient covers network failures and retryable HTTP
	// statuses (429, 5xx). A crawl pass aborted by a transient error
	// resumes later from the saved continuation.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeAuth covers login and authorization failures. Fatal to
	// the whole run.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeParsing covers malformed API responses.
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeNotFound covers missing pages and files.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeStorage covers checkpoint and download disk failures.
	// Fatal: silent data loss is unacceptable.
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeProcessing covers failures inside the per-file edit
	// action. Recovered locally: counted, logged, the queue entry is
	// still retired.
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents an API or processing error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error
func New(t ErrorType, msg string, code int) *Error {
	return &Error{Type: t, Message: msg, Code: code}
}

// Newf creates a typed error with a formatted message
func Newf(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Code: code}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown for
// untyped errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsTransient reports whether err is worth retrying or resuming later
func IsTransient(err error) bool {
	return TypeOf(err) == ErrorTypeTransient
}

// IsAuth reports whether err is an authentication/authorization failure
func IsAuth(err error) bool {
	return TypeOf(err) == ErrorTypeAuth
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeTransient
}

// TypeForStatusCode maps an HTTP status code to an error type
func TypeForStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeTransient // network error
	case statusCode == 429:
		return ErrorTypeTransient
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeTransient
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	return TypeForStatusCode(statusCode) == ErrorTypeTransient
}

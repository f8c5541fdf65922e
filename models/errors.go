package models

import (
	"errors"
	"fmt"
)

// Error codes carried by CaptureError.
const (
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeBrowserCrash      = "BROWSER_CRASH"
	ErrCodeSerialize         = "SERIALIZE_FAILED"
	ErrCodeStorage           = "STORAGE_FAILED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// CaptureError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CaptureError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(code, message string, err error) *CaptureError {
	return &CaptureError{Code: code, Message: message, Err: err}
}

// NewNavigationError wraps a transport or deadline failure of the navigator.
func NewNavigationError(timedOut bool, message string, err error) *CaptureError {
	code := ErrCodeNavigation
	if timedOut {
		code = ErrCodeNavigationTimeout
	}
	return NewCaptureError(code, message, err)
}

// IsNavigationError reports whether err (or anything it wraps) is a
// navigation failure.
func IsNavigationError(err error) bool {
	var ce *CaptureError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrCodeNavigation || ce.Code == ErrCodeNavigationTimeout
}

// ErrorCode returns the code of the outermost CaptureError in err's chain,
// or ErrCodeInternal.
func ErrorCode(err error) string {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}

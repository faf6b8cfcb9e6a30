package common

import "errors"

// AppError carries a stable machine-readable code and the HTTP status the
// error should surface as, alongside the wrapped cause.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status returns the HTTP status, or fallback when none was set.
func (e *AppError) Status(fallback int) int {
	if e == nil || e.HTTPStatus == 0 {
		return fallback
	}
	return e.HTTPStatus
}

// NewAppError wraps err with a code, message and HTTP status.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError reports whether err carries an AppError anywhere in its chain.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

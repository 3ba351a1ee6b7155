package common

import (
	"errors"
	"net/http"
)

// ErrValidation is the root of every input validation failure.
var ErrValidation = errors.New("validation failed")

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// FieldError reports a single rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// Invalid returns a FieldError for field.
func Invalid(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// WriteValidation renders err as a 422 when it is a validation failure and
// reports whether it did.
func WriteValidation(w http.ResponseWriter, err error) bool {
	var fe *FieldError
	if errors.As(err, &fe) {
		JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fe.Error(), map[string]string{"field": fe.Field})
		return true
	}
	if errors.Is(err, ErrValidation) {
		JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return true
	}
	return false
}

// WriteAppError renders err when it carries an AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusBadRequest
	}
	code := appErr.Code
	if code == "" {
		code = "BAD_REQUEST"
	}
	JSONError(w, status, code, appErr.Message, appErr.Details)
	return true
}

// Package apperrors defines the error taxonomy shared by services and controllers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the taxonomy tag carried by every domain error.
type Code string

const (
	CodeValidation                  Code = "VALIDATION_ERROR"
	CodeForbidden                   Code = "FORBIDDEN"
	CodeInvalidState                Code = "INVALID_STATE"
	CodeNotFound                    Code = "NOT_FOUND"
	CodeConfiguration               Code = "CONFIGURATION_ERROR"
	CodeDuplicateActiveRegistration Code = "DUPLICATE_ACTIVE_REGISTRATION"
	CodeInternal                    Code = "INTERNAL_ERROR"
)

// Error is a structured domain error.
type Error struct {
	Code    Code              `json:"error_code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation                  = &Error{Code: CodeValidation}
	ErrForbidden                   = &Error{Code: CodeForbidden}
	ErrInvalidState                = &Error{Code: CodeInvalidState}
	ErrNotFound                    = &Error{Code: CodeNotFound}
	ErrConfiguration               = &Error{Code: CodeConfiguration}
	ErrDuplicateActiveRegistration = &Error{Code: CodeDuplicateActiveRegistration}
)

func Validation(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// InvalidState reports an operation that is not legal for the current lifecycle status.
func InvalidState(operation, status string) *Error {
	return &Error{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot %s a registration in status %q", operation, status),
	}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

func Configuration(message string, err error) *Error {
	return &Error{Code: CodeConfiguration, Message: message, Err: err}
}

func DuplicateActiveRegistration(programID string) *Error {
	return &Error{
		Code:    CodeDuplicateActiveRegistration,
		Message: fmt.Sprintf("an active registration for program %q already exists", programID),
	}
}

func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf returns the taxonomy tag of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a taxonomy tag to the HTTP status returned at the boundary.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidState, CodeDuplicateActiveRegistration:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

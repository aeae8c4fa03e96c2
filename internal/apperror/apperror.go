// Package apperror defines the single typed application error used across
// services and handlers, and the mapping of database errors onto it.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Source points at the part of a request that caused an error.
type Source struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error carries an HTTP status and a user-facing message. Err holds the
// underlying cause, which is only exposed in development mode.
type Error struct {
	StatusCode int
	Message    string
	Sources    []Source
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the request unchanged.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusBadGateway || e.StatusCode == http.StatusServiceUnavailable
}

func New(status int, message string) *Error {
	return &Error{StatusCode: status, Message: message}
}

func Wrap(status int, message string, err error) *Error {
	return &Error{StatusCode: status, Message: message, Err: err}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return Wrap(http.StatusInternalServerError, "Something went wrong!", err)
}

// Upstream wraps a failure of an external collaborator (payment gateway, mail server).
func Upstream(message string, err error) *Error {
	return Wrap(http.StatusBadGateway, message, err)
}

// Validation builds a 400 error listing the failing fields.
func Validation(sources []Source) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: "Validation Error", Sources: sources}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromDB maps gorm errors onto application errors. notFound is the message
// used for missing records. Errors that are already *Error pass through.
func FromDB(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(http.StatusNotFound, notFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(http.StatusConflict, "Duplicate value: a record with this value already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(http.StatusBadRequest, "Referenced record does not exist or is still in use", err)
	case errors.Is(err, gorm.ErrInvalidTransaction), errors.Is(err, gorm.ErrInvalidDB):
		return Internal(err)
	}
	return Internal(err)
}

// StatusOf returns the HTTP status for any error.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and a stable machine code across the
// service boundary. Code values mirror the failure taxonomy:
// validation_error, topic_not_found, malformed_generation,
// resource_unavailable, internal_error.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, "validation_error", err)
}

func TopicNotFound(err error) *Error {
	return New(http.StatusNotFound, "topic_not_found", err)
}

func MalformedGeneration(err error) *Error {
	return New(http.StatusBadGateway, "malformed_generation", err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal_error", err)
}

// From returns err's *Error when it carries one, otherwise wraps it as an
// internal failure so handlers always have a status to map.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned for every response with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for unsuccessful responses other than 401.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// ShapeError reports a response body that does not match the expected schema.
type ShapeError struct {
	Path   string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Path, e.Reason)
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeBadInput = "bad_input"
	CodeNotFound = "not_found"
	CodeInternal = "internal_error"
)

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

// BadInput marks err as a caller mistake.
func BadInput(err error) *Error {
	return New(http.StatusBadRequest, CodeBadInput, err)
}

// FromError returns the *Error wrapped in err, or a 500 for anything else.
func FromError(err error) *Error {
	var ae *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	default:
		return New(http.StatusInternalServerError, CodeInternal, err)
	}
}

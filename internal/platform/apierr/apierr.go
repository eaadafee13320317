package apierr

import (
	"errors"
	"fmt"
	"net/http"

	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
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

// Coder is implemented by domain errors that carry their own taxonomy tag.
type Coder interface {
	ErrorCode() string
}

var codeStatus = map[string]int{
	"not_found":                 http.StatusNotFound,
	"invalid_argument":          http.StatusBadRequest,
	"invalid_transition":        http.StatusConflict,
	"upstream_unavailable":      http.StatusServiceUnavailable,
	"malformed_oracle_response": http.StatusBadGateway,
	"no_candidates_extracted":   http.StatusUnprocessableEntity,
}

// From maps any error to an *Error. Errors already of this type pass through;
// errors exposing ErrorCode() get the matching HTTP status.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var c Coder
	if errors.As(err, &c) {
		code := c.ErrorCode()
		if st, ok := codeStatus[code]; ok {
			return New(st, code, err)
		}
		return New(http.StatusInternalServerError, code, err)
	}
	switch {
	case errors.Is(err, perrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, perrors.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, perrors.ErrInvalidTransition):
		return New(http.StatusConflict, "invalid_transition", err)
	}
	return New(http.StatusInternalServerError, "internal", err)
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"

	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
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

// FromError maps domain sentinels to an HTTP status and a stable error code.
// Unknown errors become 500 with the fallback code.
func FromError(err error, fallbackCode string) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, coacherrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, coacherrors.ErrUnauthorized):
		return New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, coacherrors.ErrAlreadyAnalyzed):
		return New(http.StatusConflict, "already_analyzed", err)
	case errors.Is(err, coacherrors.ErrInvalidTransition):
		code := "invalid_transition"
		var te *coacherrors.TransitionError
		if errors.As(err, &te) && te.Reason != "" {
			code = te.Reason
		}
		return New(http.StatusConflict, code, err)
	case errors.Is(err, coacherrors.ErrAnalysisParse):
		return New(http.StatusBadGateway, "analysis_parse_error", err)
	case errors.Is(err, coacherrors.ErrUpstreamModel):
		return New(http.StatusBadGateway, "upstream_model_error", err)
	case errors.Is(err, coacherrors.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_request", err)
	default:
		return New(http.StatusInternalServerError, fallbackCode, err)
	}
}

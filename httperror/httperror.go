package httperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"killsrp/killmail"
)

type HTTPError struct {
	error
	Code    int    `json:"code"`
	Message string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

func (e *HTTPError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Code)
	return nil
}

func (e *HTTPError) Unwrap() error {
	return e.error
}

func New(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		error:   cause,
		Code:    code,
		Message: message,
	}
}

func InternalServerError(message string, err error) *HTTPError {
	return New(http.StatusInternalServerError, "internal server error", fmt.Errorf("%s: %w", message, err))
}

func NotFound(message string) *HTTPError {
	return New(http.StatusNotFound, message, errors.New(message))
}

func BadRequest(message string) *HTTPError {
	return New(http.StatusBadRequest, message, errors.New(message))
}

func BadRequestWithError(message string, err error) *HTTPError {
	return New(http.StatusBadRequest, message, fmt.Errorf("%s: %w", message, err))
}

func ServiceUnavailable(message string) *HTTPError {
	return New(http.StatusServiceUnavailable, message, errors.New(message))
}

func BadGateway(message string, err error) *HTTPError {
	return New(http.StatusBadGateway, message, fmt.Errorf("%s: %w", message, err))
}

// FromKillmail maps a killmail pipeline failure to a response. Input problems
// are 400s, missing lookups 404s, upstream trouble 502s and anything else,
// including incomplete or invalid records, a 500.
func FromKillmail(err error) *HTTPError {
	var e *HTTPError

	kind := killmail.ErrorKind(err)
	switch kind {
	case "invalid_source_url", "unknown_source":
		e = New(http.StatusBadRequest, err.Error(), err)
	case "not_found":
		e = New(http.StatusNotFound, err.Error(), err)
	case "upstream_format":
		var upstream *killmail.UpstreamFormatError
		errors.As(err, &upstream)
		e = New(http.StatusBadGateway, fmt.Sprintf("killmail source returned unexpected data (status %d)", upstream.StatusCode), err)
	case "transport":
		e = New(http.StatusBadGateway, "killmail source unreachable", err)
	default:
		e = InternalServerError("failed to normalize killmail", err)
	}

	e.Kind = kind
	return e
}

package killmail

import (
	"errors"
	"fmt"
	"strings"

	"killsrp/fetch"
)

// InvalidSourceURLError is returned when a URL does not match the pattern an
// adapter expects. Retrying with the same adapter will not help.
type InvalidSourceURLError struct {
	Source Source
	URL    string
	Err    error
}

func (e *InvalidSourceURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s killmail url %q: %v", e.Source, e.URL, e.Err)
	}
	return fmt.Sprintf("invalid %s killmail url %q: killmail ID not found", e.Source, e.URL)
}

func (e *InvalidSourceURLError) Unwrap() error {
	return e.Err
}

// UpstreamFormatError is returned when an upstream answered but its body could
// not be parsed into the expected shape. StatusCode is the observed HTTP status.
type UpstreamFormatError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamFormatError) Error() string {
	return fmt.Sprintf("failed to parse killmail data from %s (status %d): %v", e.URL, e.StatusCode, e.Err)
}

func (e *UpstreamFormatError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by lookups that found no match.
type NotFoundError struct {
	Kind       string
	Identifier any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.Identifier)
}

// IncompleteRecordError lists the mandatory fields that were never set.
type IncompleteRecordError struct {
	Missing []string
}

func (e *IncompleteRecordError) Error() string {
	return "incomplete killmail record, missing " + strings.Join(e.Missing, ", ")
}

// InvalidFieldError is returned when a field is set to a value a record can
// not hold, such as a negative kill ID.
type InvalidFieldError struct {
	Field string
	Value any
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid killmail field %s: %v", e.Field, e.Value)
}

type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown killmail source %q", e.Source)
}

// ErrorKind names the failure class of err for logs and API responses.
func ErrorKind(err error) string {
	var (
		invalidURL    *InvalidSourceURLError
		unknownSource *UnknownSourceError
		notFound      *NotFoundError
		upstream      *UpstreamFormatError
		transport     *fetch.TransportError
		incomplete    *IncompleteRecordError
		invalidField  *InvalidFieldError
	)

	switch {
	case errors.As(err, &invalidURL):
		return "invalid_source_url"
	case errors.As(err, &unknownSource):
		return "unknown_source"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &upstream):
		return "upstream_format"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &incomplete):
		return "incomplete_record"
	case errors.As(err, &invalidField):
		return "invalid_field"
	default:
		return "unknown"
	}
}

// IsTransient reports whether err may go away on retry: the upstream was
// unreachable or answered with something unparseable.
func IsTransient(err error) bool {
	switch ErrorKind(err) {
	case "upstream_format", "transport":
		return true
	default:
		return false
	}
}

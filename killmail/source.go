package killmail

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"killsrp/fetch"
)

// Source names an upstream killmail provider.
type Source string

const (
	SourceZKillboard Source = "zkillboard"
	SourceCREST      Source = "crest"
)

func ParseSource(name string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(name))); s {
	case SourceZKillboard, SourceCREST:
		return s, nil
	default:
		return "", &UnknownSourceError{Source: name}
	}
}

var errUnsupportedScheme = errors.New("unsupported url scheme")

// normalizeURL makes loosely typed input absolute. Input without a host is
// treated as host+path and given the https scheme.
func normalizeURL(source Source, raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("//" + raw)
	}
	if err != nil {
		return nil, &InvalidSourceURLError{Source: source, URL: raw, Err: err}
	}

	if u.Scheme == "" {
		u.Scheme = "https"
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, &InvalidSourceURLError{Source: source, URL: raw, Err: errUnsupportedScheme}
	}

	if u.Host == "" {
		return nil, &InvalidSourceURLError{Source: source, URL: raw, Err: errors.New("missing host")}
	}

	return u, nil
}

// matchKillID extracts the kill ID captured by the first group of pattern.
func matchKillID(source Source, pattern *regexp.Regexp, raw string) (int64, error) {
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, &InvalidSourceURLError{Source: source, URL: raw}
	}

	killID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, &InvalidSourceURLError{Source: source, URL: raw, Err: err}
	}

	return killID, nil
}

var errUnexpectedStatus = errors.New("unexpected status code")

// decodeBody unmarshals a JSON response, reporting both bad statuses and bad
// bodies as *UpstreamFormatError.
func decodeBody(target string, res fetch.Response, v any) error {
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return &UpstreamFormatError{URL: target, StatusCode: res.StatusCode, Err: errUnexpectedStatus}
	}

	if err := json.Unmarshal(res.Body, v); err != nil {
		return &UpstreamFormatError{URL: target, StatusCode: res.StatusCode, Err: err}
	}

	return nil
}

func parseKillTime(target string, res fetch.Response, layout string, value *string) (time.Time, error) {
	if value == nil {
		return time.Time{}, &UpstreamFormatError{URL: target, StatusCode: res.StatusCode, Err: errors.New("missing killTime")}
	}

	t, err := time.ParseInLocation(layout, *value, time.UTC)
	if err != nil {
		return time.Time{}, &UpstreamFormatError{URL: target, StatusCode: res.StatusCode, Err: fmt.Errorf("invalid killTime: %w", err)}
	}

	return t, nil
}

// eveID decodes an ID sent either as a JSON number or a numeric string.
// null and missing both leave it unset.
type eveID struct {
	value int64
	set   bool
}

func (i *eveID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "null" || s == "" {
		*i = eveID{}
		return nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}

	*i = eveID{value: v, set: true}
	return nil
}

// ref is the {id, name} pair used for identities in killmail payloads.
type ref struct {
	ID   eveID  `json:"id"`
	Name string `json:"name"`
}

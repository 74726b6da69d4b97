// Package fetch is the shared outbound HTTP client used by every killmail
// source. It pools connections and identifies the caller on every request but
// leaves status handling and retries to its callers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 4 << 20
)

// UserAgent builds the identifying header value sent to third-party APIs.
func UserAgent(version string, contact string) string {
	return fmt.Sprintf("KillSRP/%s (%s)", version, contact)
}

// Response is the raw result of a GET. Non-2xx statuses are not errors.
type Response struct {
	StatusCode int
	Body       []byte
}

// TransportError wraps failures where no usable response was received.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
	timeout     time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default client, e.g. with an
// httptest server's client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every request. A client passed with WithHTTPClient is
// copied first and left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

func New(userAgent string, opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		userAgent:   userAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		httpClient := *c.httpClient
		httpClient.Timeout = c.timeout
		c.httpClient = &httpClient
	}

	return c
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

// HTTPClient exposes the underlying client for libraries that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Get issues a GET to rawURL with query merged into its existing query string.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Response{}, &TransportError{URL: rawURL, Err: err}
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, &TransportError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/xml;q=0.9, */*;q=0.8")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &TransportError{URL: rawURL, Err: err}
	}

	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxBodySize))
	if err != nil {
		return Response{}, &TransportError{URL: rawURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return Response{StatusCode: res.StatusCode, Body: body}, nil
}

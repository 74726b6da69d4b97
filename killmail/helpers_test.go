package killmail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"killsrp/fetch"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *fetch.Client) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv, fetch.New("KillSRP-Testing/0.1 (test@example.com)", fetch.WithHTTPClient(srv.Client()))
}

func newTLSUpstream(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *fetch.Client) {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	return srv, fetch.New("KillSRP-Testing/0.1 (test@example.com)", fetch.WithHTTPClient(srv.Client()))
}

func serveBody(status int, contentType string, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

type stubShipNames struct {
	name  string
	ok    bool
	err   error
	calls int
}

func (s *stubShipNames) ResolveShipName(_ context.Context, _ int64) (string, bool, error) {
	s.calls++
	return s.name, s.ok, s.err
}

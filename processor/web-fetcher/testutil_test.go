package webfetcher

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/c360studio/semfetch/source/weburl"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// fakeServer serves canned responses keyed by URL and records calls.
type fakeServer struct {
	responses map[string]fakeResponse
	calls     atomic.Int64
	lastReq   atomic.Pointer[http.Request]
}

type fakeResponse struct {
	status      int
	contentType string
	body        string
	location    string
}

func newFakeServer() *fakeServer {
	return &fakeServer{responses: make(map[string]fakeResponse)}
}

func (s *fakeServer) handle(url string, status int, contentType, body string) {
	s.responses[url] = fakeResponse{status: status, contentType: contentType, body: body}
}

func (s *fakeServer) redirect(from, to string) {
	s.responses[from] = fakeResponse{status: http.StatusFound, location: to}
}

func (s *fakeServer) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	s.lastReq.Store(req)

	fr, ok := s.responses[req.URL.String()]
	if !ok {
		fr = fakeResponse{status: http.StatusNotFound, contentType: "text/plain", body: "not found"}
	}

	header := make(http.Header)
	if fr.contentType != "" {
		header.Set("Content-Type", fr.contentType)
	}
	if fr.location != "" {
		header.Set("Location", fr.location)
	}

	return &http.Response{
		StatusCode: fr.status,
		Status:     http.StatusText(fr.status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(fr.body)),
		Request:    req,
	}, nil
}

// newTestFetcher builds a Fetcher whose transport is the fake server.
func newTestFetcher(server http.RoundTripper, cfg Config) *Fetcher {
	policy, err := weburl.NewPolicy(cfg.BlockedHosts)
	if err != nil {
		panic(err)
	}
	return NewFetcher(cfg, policy, WithTransport(server))
}

// newTestHandler builds a Handler backed by the fake server with default config.
func newTestHandler(server http.RoundTripper) *Handler {
	return NewHandler(newTestFetcher(server, DefaultConfig()), nil, nil, nil)
}

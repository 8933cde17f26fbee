package webfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/c360studio/semfetch/source/weburl"
)

// drainLimit bounds how much of an error response body is read before close.
const drainLimit = 64 * 1024

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Response contains the raw result of a successful GET.
type Response struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
}

// Text decodes the body to UTF-8. A charset declared in the Content-Type
// header, a BOM or a meta tag is honored. Without one, a body that is valid
// UTF-8 is returned as is and only other bodies fall back to the sniffed
// encoding.
func (r *Response) Text() (string, error) {
	enc, name, certain := charset.DetermineEncoding(r.Body, r.ContentType)
	if (name == "utf-8" || !certain) && utf8.Valid(r.Body) {
		return string(r.Body), nil
	}
	data, err := io.ReadAll(transform.NewReader(bytes.NewReader(r.Body), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode body as %s: %w", name, err)
	}
	return string(data), nil
}

// Fetcher fetches web content after checking the target against a Policy.
type Fetcher struct {
	client         *http.Client
	policy         *weburl.Policy
	userAgent      string
	headers        map[string]string
	maxContentSize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTransport replaces the HTTP transport. Redirect checks and the
// policy still apply.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *Fetcher) {
		f.client.Transport = rt
	}
}

// NewFetcher creates a new web fetcher. A nil policy applies only the
// private-target check.
func NewFetcher(cfg Config, policy *weburl.Policy, opts ...FetcherOption) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	dial := dialer.DialContext
	if cfg.StrictDial {
		dial = strictDialContext(dialer)
	}

	transport := &http.Transport{
		DialContext:           dial,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.GetTimeout(),
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	f := &Fetcher{
		policy:         policy,
		userAgent:      cfg.GetUserAgent(),
		headers:        cfg.Headers,
		maxContentSize: cfg.GetMaxContentSize(),
	}

	maxRedirects := cfg.GetMaxRedirects()
	f.client = &http.Client{
		Transport: transport,
		Timeout:   cfg.GetTimeout(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			target := req.URL.String()
			if err := f.policy.Check(target); err != nil {
				return &BlockedTargetError{URL: target, Reason: err}
			}
			return nil
		},
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// strictDialContext resolves the host and refuses to connect when any
// resolved address is private.
func strictDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("no addresses for %s", host)
		}

		for _, ipAddr := range ips {
			if weburl.IsPrivateIP(ipAddr.IP) {
				return nil, &BlockedTargetError{
					URL:    addr,
					Reason: fmt.Errorf("%w: %s resolves to %s", weburl.ErrPrivateTarget, host, ipAddr.IP),
				}
			}
		}

		var lastErr error
		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("failed to connect to any resolved IP: %w", lastErr)
	}
}

// Fetch checks rawURL against the policy and retrieves it. headers are
// applied over the default header set.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	if err := f.policy.Check(rawURL); err != nil {
		return nil, &BlockedTargetError{URL: rawURL, Reason: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Op: "create request", Err: err}
	}
	req.Header = f.buildHeaders(headers)

	resp, err := f.client.Do(req)
	if err != nil {
		var blocked *BlockedTargetError
		if errors.As(err, &blocked) {
			return nil, blocked
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Op: "read body", Err: err}
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, &FetchError{
			URL: rawURL,
			Err: fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize),
		}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    finalURL,
	}, nil
}

// buildHeaders layers configured headers and then caller headers over the
// defaults. Keys are canonicalized, so "user-agent" replaces "User-Agent".
func (f *Fetcher) buildHeaders(overrides map[string]string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", f.userAgent)
	h.Set("Accept", defaultAccept)
	for k, v := range f.headers {
		h.Set(k, v)
	}
	for k, v := range overrides {
		h.Set(k, v)
	}
	return h
}

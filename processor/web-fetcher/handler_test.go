package webfetcher

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_DefaultWindow(t *testing.T) {
	server := newFakeServer()
	page := strings.Repeat("a", 6000) + strings.Repeat("b", 4000)
	server.handle("https://example.com/page", http.StatusOK, "text/html", page)
	h := newTestHandler(server)

	result := h.FetchHTML(context.Background(), FetchRequest{URL: "https://example.com/page"})
	require.False(t, result.IsError, result.Text())
	require.Len(t, result.Content, 1)
	assert.Equal(t, ContentTypeText, result.Content[0].Type)
	assert.Equal(t, page[:5000], result.Text())

	result = h.FetchHTML(context.Background(), FetchRequest{
		URL:        "https://example.com/page",
		StartIndex: 5000,
		MaxLength:  2000,
	})
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, page[5000:7000], result.Text())

	result = h.FetchHTML(context.Background(), FetchRequest{URL: "https://example.com/page", StartIndex: 20000})
	require.False(t, result.IsError, result.Text())
	assert.Empty(t, result.Text())
}

func TestHandler_Text(t *testing.T) {
	server := newFakeServer()
	server.handle("https://example.com/", http.StatusOK, "text/html; charset=utf-8",
		"<html><body><script>evil()</script>Hello   World</body></html>")
	h := newTestHandler(server)

	result := h.FetchText(context.Background(), FetchRequest{URL: "https://example.com/"})
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, "Hello World", result.Text())
}

func TestHandler_UndeclaredUTF8Page(t *testing.T) {
	server := newFakeServer()
	page := "<html><body>" + strings.Repeat("a", 2000) + "<p>café 日本</p></body></html>"
	server.handle("https://example.com/utf8", http.StatusOK, "text/html", page)
	h := newTestHandler(server)
	req := FetchRequest{URL: "https://example.com/utf8", MaxLength: 100000}

	result := h.FetchHTML(context.Background(), req)
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, page, result.Text())

	result = h.FetchText(context.Background(), req)
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, strings.Repeat("a", 2000)+"café 日本", result.Text())

	// The window counts characters of the decoded text.
	result = h.FetchHTML(context.Background(), FetchRequest{
		URL:        "https://example.com/utf8",
		StartIndex: len("<html><body>") + 2000 + len("<p>"),
		MaxLength:  7,
	})
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, "café 日本", result.Text())
}

func TestHandler_JSON(t *testing.T) {
	server := newFakeServer()
	server.handle("https://api.example.com/data", http.StatusOK, "application/json", `{"a":1,  "b":2}`)
	server.handle("https://api.example.com/broken", http.StatusOK, "application/json", `{"a":`)
	h := newTestHandler(server)

	result := h.FetchJSON(context.Background(), FetchRequest{URL: "https://api.example.com/data"})
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, `{"a":1,"b":2}`, result.Text())

	result = h.FetchJSON(context.Background(), FetchRequest{URL: "https://api.example.com/broken"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), "failed to fetch https://api.example.com/broken")
}

func TestHandler_Markdown(t *testing.T) {
	server := newFakeServer()
	server.handle("https://example.com/doc", http.StatusOK, "text/html",
		`<html><body><h2>Install</h2><p>Run <code>go install</code>.</p></body></html>`)
	h := newTestHandler(server)

	result := h.FetchMarkdown(context.Background(), FetchRequest{URL: "https://example.com/doc"})
	require.False(t, result.IsError, result.Text())
	assert.Contains(t, result.Text(), "## Install")
	assert.Contains(t, result.Text(), "`go install`")
}

func TestHandler_BlockedForEveryFormat(t *testing.T) {
	server := newFakeServer()
	h := newTestHandler(server)

	entryPoints := map[string]func(context.Context, FetchRequest) FetchResult{
		"html":     h.FetchHTML,
		"json":     h.FetchJSON,
		"txt":      h.FetchText,
		"markdown": h.FetchMarkdown,
	}

	for name, fetch := range entryPoints {
		t.Run(name, func(t *testing.T) {
			result := fetch(context.Background(), FetchRequest{URL: "http://127.0.0.1/admin"})
			require.True(t, result.IsError)
			require.Len(t, result.Content, 1)
			assert.Contains(t, result.Text(), "http://127.0.0.1/admin")
			assert.Contains(t, result.Text(), "blocked")
		})
	}

	assert.Zero(t, server.calls.Load())
}

func TestHandler_Errors(t *testing.T) {
	server := newFakeServer()
	server.handle("https://example.com/ok", http.StatusOK, "text/html", "ok")
	h := newTestHandler(server)

	tests := []struct {
		name    string
		format  Format
		req     FetchRequest
		contain string
	}{
		{"not found", FormatHTML, FetchRequest{URL: "https://example.com/missing"}, "HTTP error: 404"},
		{"negative max length", FormatHTML, FetchRequest{URL: "https://example.com/ok", MaxLength: -1}, "invalid request"},
		{"negative start index", FormatText, FetchRequest{URL: "https://example.com/ok", StartIndex: -5}, "invalid request"},
		{"unknown format", Format("pdf"), FetchRequest{URL: "https://example.com/ok"}, "unknown format"},
		{"empty url", FormatHTML, FetchRequest{}, "blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := h.Fetch(context.Background(), tt.format, tt.req)
			assert.True(t, result.IsError)
			assert.Contains(t, result.Text(), tt.contain)
		})
	}
}

func TestHandler_FormatAlias(t *testing.T) {
	server := newFakeServer()
	server.handle("https://example.com/", http.StatusOK, "text/html", "<p>plain   words</p>")
	h := newTestHandler(server)

	result := h.Fetch(context.Background(), Format("text"), FetchRequest{URL: "https://example.com/"})
	require.False(t, result.IsError, result.Text())
	assert.Equal(t, "plain words", result.Text())
}

func TestHandler_RecoversFromPanic(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil)

	result := h.FetchHTML(context.Background(), FetchRequest{URL: "https://example.com/"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), "internal error")
}

func TestHandler_Metrics(t *testing.T) {
	server := newFakeServer()
	server.handle("https://example.com/", http.StatusOK, "text/html", "<p>hi</p>")

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := NewHandler(newTestFetcher(server, DefaultConfig()), nil, metrics, nil)

	h.FetchText(context.Background(), FetchRequest{URL: "https://example.com/"})
	h.FetchText(context.Background(), FetchRequest{URL: "http://192.168.1.1/"})
	h.FetchHTML(context.Background(), FetchRequest{URL: "https://example.com/gone"})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("txt", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("txt", "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("html", "http_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))
}

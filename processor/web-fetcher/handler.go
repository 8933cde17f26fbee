package webfetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semfetch/source/weburl"
)

// Handler runs the guarded fetch pipeline: validate, fetch, transform and
// window. Every entry point returns a FetchResult and never an error.
// A Handler holds no per-call state and is safe for concurrent use.
type Handler struct {
	fetcher   *Fetcher
	converter *Converter
	metrics   *Metrics
	logger    *slog.Logger
}

// NewHandler creates a new fetch handler. converter, metrics and logger may be nil.
func NewHandler(fetcher *Fetcher, converter *Converter, metrics *Metrics, logger *slog.Logger) *Handler {
	if converter == nil {
		converter = NewConverter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		fetcher:   fetcher,
		converter: converter,
		metrics:   metrics,
		logger:    logger,
	}
}

// FetchHTML returns the raw HTML of the resource.
func (h *Handler) FetchHTML(ctx context.Context, req FetchRequest) FetchResult {
	return h.Fetch(ctx, FormatHTML, req)
}

// FetchJSON returns the resource as compact JSON.
func (h *Handler) FetchJSON(ctx context.Context, req FetchRequest) FetchResult {
	return h.Fetch(ctx, FormatJSON, req)
}

// FetchText returns the visible text of an HTML resource.
func (h *Handler) FetchText(ctx context.Context, req FetchRequest) FetchResult {
	return h.Fetch(ctx, FormatText, req)
}

// FetchMarkdown returns an HTML resource converted to Markdown.
func (h *Handler) FetchMarkdown(ctx context.Context, req FetchRequest) FetchResult {
	return h.Fetch(ctx, FormatMarkdown, req)
}

// Fetch runs the pipeline for the given format.
func (h *Handler) Fetch(ctx context.Context, format Format, req FetchRequest) (result FetchResult) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Fetch pipeline panicked", "url", req.URL, "format", format, "panic", r)
			h.metrics.observe(format, "fetch_error", time.Since(started))
			result = ErrorResult(fmt.Sprintf("failed to fetch %s: internal error: %v", req.URL, r))
		}
	}()

	text, err := h.run(ctx, format, req)
	h.metrics.observe(format, outcome(err), time.Since(started))

	if err != nil {
		if IsBlocked(err) {
			h.logger.Warn("Blocked fetch of private target",
				"url", req.URL,
				"format", format,
				"error", err)
		} else {
			h.logger.Debug("Fetch failed",
				"url", req.URL,
				"host", weburl.ExtractDomain(req.URL),
				"format", format,
				"error", err)
		}
		return ErrorResult(err.Error())
	}

	windowed := Window(text, req.StartIndex, req.EffectiveMaxLength())

	h.logger.Debug("Fetched URL",
		"url", req.URL,
		"format", format,
		"length", len(text),
		"returned", len(windowed),
		"elapsed", time.Since(started))

	return TextResult(windowed)
}

// run validates, fetches and transforms; the returned text is not windowed.
func (h *Handler) run(ctx context.Context, format Format, req FetchRequest) (string, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	resp, err := h.fetcher.Fetch(ctx, req.URL, req.Headers)
	if err != nil {
		return "", err
	}

	text, err := h.converter.Convert(format, resp)
	if err != nil {
		var invalid *InvalidRequestError
		if errors.As(err, &invalid) {
			return "", err
		}
		return "", &FetchError{URL: req.URL, Err: err}
	}
	return text, nil
}

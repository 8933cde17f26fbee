// Package webfetcher fetches a URL and returns it as HTML, JSON, plain text
// or Markdown, windowed to a caller-specified range of characters.
//
// # Overview
//
// Every request runs the same pipeline:
//
//  1. The target URL is checked with a weburl.Policy. Private, loopback,
//     link-local and unparseable targets are refused before any network
//     access.
//  2. A GET is issued with a browser User-Agent and the default headers,
//     overridden by request headers.
//  3. A non-2xx status, a transport failure or an oversized body fails
//     the request.
//  4. The body is transformed for the requested format.
//  5. The result is cut to [start_index, start_index+max_length) in runes.
//
// Failures never escape as Go errors. The Handler entry points return a
// FetchResult whose single content block carries either the windowed text
// or an error message with IsError set.
//
// # Architecture
//
//   - Fetcher: HTTP client with policy checks on the target and on every
//     redirect, a body size limit and an optional resolving dialer
//   - Converter: HTML passthrough, compact JSON, visible text and Markdown
//   - Handler: the four entry points FetchHTML, FetchJSON, FetchText and
//     FetchMarkdown
//   - Responder: NATS request/reply surface for the Handler
//   - Metrics: Prometheus counters and latency histograms
//
// # Security
//
// Host classification is lexical and does not resolve DNS. A public name
// that resolves to a private address passes the check. Setting StrictDial
// resolves at connect time and refuses private addresses; it is off by
// default.
//
// # Usage
//
//	policy, err := weburl.NewPolicy(cfg.BlockedHosts)
//	if err != nil {
//	    return err
//	}
//	handler := webfetcher.NewHandler(webfetcher.NewFetcher(cfg, policy), nil, nil, logger)
//
//	result := handler.FetchMarkdown(ctx, webfetcher.FetchRequest{URL: "https://go.dev/doc/"})
//	if result.IsError {
//	    // result.Text() is the error message
//	}
package webfetcher

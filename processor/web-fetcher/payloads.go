package webfetcher

import (
	"fmt"
	"strings"
)

// DefaultMaxLength is the window length used when a request does not set one.
const DefaultMaxLength = 5000

// Format selects the output representation of a fetched resource.
type Format string

// Supported output formats.
const (
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatHTML, FormatJSON, FormatText, FormatMarkdown}

// ParseFormat resolves a format name, accepting "text" and "md" as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "txt", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", &InvalidRequestError{Reason: fmt.Sprintf("unknown format %q", name)}
	}
}

// FetchRequest describes a single fetch.
type FetchRequest struct {
	// URL is the absolute URL to fetch.
	URL string `json:"url"`

	// Headers are merged over the default header set; caller values win.
	Headers map[string]string `json:"headers,omitempty"`

	// MaxLength is the number of characters to return. Zero means DefaultMaxLength.
	MaxLength int `json:"max_length,omitempty"`

	// StartIndex is the character offset the window starts at.
	StartIndex int `json:"start_index,omitempty"`
}

// Validate checks the window parameters.
func (r FetchRequest) Validate() error {
	if r.MaxLength < 0 {
		return &InvalidRequestError{Reason: "max_length must be positive"}
	}
	if r.StartIndex < 0 {
		return &InvalidRequestError{Reason: "start_index must not be negative"}
	}
	return nil
}

// EffectiveMaxLength returns MaxLength or DefaultMaxLength when unset.
func (r FetchRequest) EffectiveMaxLength() int {
	if r.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return r.MaxLength
}

// ContentTypeText is the only content block kind produced.
const ContentTypeText = "text"

// ContentBlock is one block of result content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FetchResult is the outcome of a fetch. It always holds exactly one
// content block; when IsError is set the text is an error message.
type FetchResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// TextResult wraps successful content.
func TextResult(text string) FetchResult {
	return FetchResult{Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// ErrorResult wraps an error message.
func ErrorResult(msg string) FetchResult {
	return FetchResult{
		Content: []ContentBlock{{Type: ContentTypeText, Text: msg}},
		IsError: true,
	}
}

// Text returns the text of the single content block.
func (r FetchResult) Text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

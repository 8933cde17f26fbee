package webfetcher

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// utf8BOM is stripped before JSON is compacted.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Converter turns a fetched body into one of the output formats.
type Converter struct {
	markdown *md.Converter
}

// NewConverter creates a converter with the default Markdown rules.
func NewConverter() *Converter {
	return &Converter{
		markdown: md.NewConverter("", true, nil),
	}
}

// Convert dispatches on format.
func (c *Converter) Convert(format Format, resp *Response) (string, error) {
	switch format {
	case FormatHTML:
		return resp.Text()
	case FormatJSON:
		return CompactJSON(resp.Body)
	case FormatText:
		body, err := resp.Text()
		if err != nil {
			return "", err
		}
		return ExtractText(body)
	case FormatMarkdown:
		body, err := resp.Text()
		if err != nil {
			return "", err
		}
		return c.Markdown(body)
	default:
		return "", &InvalidRequestError{Reason: fmt.Sprintf("unknown format %q", format)}
	}
}

// CompactJSON parses body as JSON and re-serializes it without whitespace.
// Key order is preserved, a repeated key keeps its last value and numbers
// are normalized, so {"a":1.0,"b":1e2} becomes {"a":1,"b":100}.
func CompactJSON(body []byte) (string, error) {
	body = bytes.TrimPrefix(body, utf8BOM)

	out, err := canonicalJSON(body)
	if err != nil {
		return "", fmt.Errorf("decode JSON: %w", err)
	}
	return out, nil
}

// ExtractText removes script and style elements and returns the visible
// text of the body with whitespace runs collapsed to single spaces.
func ExtractText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style").Remove()

	return collapseWhitespace(doc.Find("body").Text()), nil
}

// collapseWhitespace replaces every whitespace run with one space and trims.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Markdown converts HTML to Markdown.
func (c *Converter) Markdown(htmlContent string) (string, error) {
	markdown, err := c.markdown.ConvertString(htmlContent)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return markdown, nil
}

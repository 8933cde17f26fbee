package weburl

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/bmatcuk/doublestar/v4"
)

// Errors returned by Policy.Check.
var (
	ErrPrivateTarget = errors.New("private or internal network target")
	ErrBlockedHost   = errors.New("host matches a blocked pattern")
)

// Policy combines the lexical private-target check with an operator
// supplied list of glob patterns matched against the lowercased hostname.
// Patterns can only block additional hosts; they never allow a private one.
type Policy struct {
	patterns []string
}

// NewPolicy validates the glob patterns and returns a Policy.
func NewPolicy(patterns []string) (*Policy, error) {
	p := &Policy{}
	for _, pattern := range patterns {
		pattern = normalizeHost(pattern)
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid blocked host pattern %q", pattern)
		}
		p.patterns = append(p.patterns, pattern)
	}
	return p, nil
}

// Check returns nil when rawURL may be fetched. A nil Policy applies only
// the private-target check.
func (p *Policy) Check(rawURL string) error {
	if IsPrivateTarget(rawURL) {
		return ErrPrivateTarget
	}
	if p == nil || len(p.patterns) == 0 {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrPrivateTarget
	}
	host := normalizeHost(parsed.Hostname())
	for _, pattern := range p.patterns {
		if ok, _ := doublestar.Match(pattern, host); ok {
			return fmt.Errorf("%w: %s", ErrBlockedHost, pattern)
		}
	}
	return nil
}

// Patterns returns a copy of the normalized patterns: lowercased, with
// blank entries dropped.
func (p *Policy) Patterns() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.patterns...)
}

package webfetcher

import (
	"fmt"
	"time"

	"github.com/c360studio/semfetch/source/weburl"
)

// DefaultUserAgent is a realistic browser User-Agent so servers that reject
// unidentified clients still respond.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds configuration for the web fetcher.
type Config struct {
	// Timeout is the maximum time for a single fetch, including the body read.
	Timeout string `json:"timeout" yaml:"timeout"`

	// MaxContentSize is the maximum response body size in bytes.
	MaxContentSize int64 `json:"max_content_size" yaml:"max_content_size"`

	// UserAgent is the default User-Agent header.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Headers are extra default headers. Request headers override them.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// BlockedHosts are doublestar glob patterns for hosts to refuse in
	// addition to private targets.
	BlockedHosts []string `json:"blocked_hosts,omitempty" yaml:"blocked_hosts,omitempty"`

	// StrictDial resolves hostnames at connect time and refuses private
	// addresses. Off by default.
	StrictDial bool `json:"strict_dial" yaml:"strict_dial"`

	// MaxRedirects bounds the redirect chain. Zero means the default.
	MaxRedirects int `json:"max_redirects" yaml:"max_redirects"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout format: %w", err)
		}
	}
	if c.MaxContentSize < 0 {
		return fmt.Errorf("max_content_size must be non-negative")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be non-negative")
	}
	if _, err := weburl.NewPolicy(c.BlockedHosts); err != nil {
		return fmt.Errorf("blocked_hosts: %w", err)
	}
	return nil
}

// parseDurationOrDefault parses a duration string and returns the default if empty or invalid.
func parseDurationOrDefault(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// GetTimeout returns the fetch timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	return parseDurationOrDefault(c.Timeout, 30*time.Second)
}

// GetMaxContentSize returns the max content size with default.
func (c *Config) GetMaxContentSize() int64 {
	if c.MaxContentSize <= 0 {
		return 10 * 1024 * 1024 // 10MB default
	}
	return c.MaxContentSize
}

// GetUserAgent returns the user agent with default.
func (c *Config) GetUserAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// GetMaxRedirects returns the redirect limit with default.
func (c *Config) GetMaxRedirects() int {
	if c.MaxRedirects <= 0 {
		return 10
	}
	return c.MaxRedirects
}

// DefaultConfig returns default configuration for the web fetcher.
func DefaultConfig() Config {
	return Config{
		Timeout:        "30s",
		MaxContentSize: 10 * 1024 * 1024, // 10MB
		UserAgent:      DefaultUserAgent,
		StrictDial:     false,
		MaxRedirects:   10,
	}
}

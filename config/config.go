// Package config provides configuration loading and management for semfetch.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	webfetcher "github.com/c360studio/semfetch/processor/web-fetcher"
)

// Config represents the complete semfetch configuration
type Config struct {
	Fetch   webfetcher.Config `yaml:"fetch"`
	NATS    NATSConfig        `yaml:"nats"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// NATSConfig configures the NATS connection used by serve
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
	// SubjectPrefix is joined with the format name to form request subjects
	SubjectPrefix string `yaml:"subject_prefix"`
	// QueueGroup load-balances requests across serve instances
	QueueGroup string `yaml:"queue_group"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: webfetcher.DefaultConfig(),
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "semfetch.fetch",
			QueueGroup:    "semfetch",
		},
		Metrics: MetricsConfig{
			Addr: "", // Disabled
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		return fmt.Errorf("nats.subject_prefix must be a literal subject, got %q", c.NATS.SubjectPrefix)
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr: %w", err)
		}
	}
	return nil
}

// ResponderConfig returns the NATS responder settings.
func (c *Config) ResponderConfig() webfetcher.ResponderConfig {
	return webfetcher.ResponderConfig{
		SubjectPrefix: c.NATS.SubjectPrefix,
		QueueGroup:    c.NATS.QueueGroup,
	}
}

// ApplyFile layers the YAML file at path over c. Every key present in the
// file replaces the current value, including false and zero, so a later
// file can switch off strict_dial or restore a default limit. Headers merge
// key by key. On error c is left unchanged.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	next := c.clone()
	if err := yaml.Unmarshal(data, next); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	var layer struct {
		Fetch struct {
			Headers map[string]string `yaml:"headers"`
		} `yaml:"fetch"`
	}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	next.Fetch.Headers = mergeHeaders(c.Fetch.Headers, layer.Fetch.Headers)

	*c = *next
	return nil
}

// clone returns a copy of c that shares no maps or slices with it.
func (c *Config) clone() *Config {
	out := *c
	if c.Fetch.Headers != nil {
		out.Fetch.Headers = mergeHeaders(c.Fetch.Headers, nil)
	}
	if c.Fetch.BlockedHosts != nil {
		out.Fetch.BlockedHosts = append([]string(nil), c.Fetch.BlockedHosts...)
	}
	return &out
}

func mergeHeaders(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

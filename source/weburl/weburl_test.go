package weburl

import (
	"fmt"
	"net"
	"testing"
)

func TestIsPrivateTarget(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		// IPv4 private ranges
		{"10.x.x.x", "http://10.0.0.1/path", true},
		{"10 upper bound", "http://10.255.255.255/", true},
		{"172.16.x.x", "http://172.16.0.1/", true},
		{"172.31.x.x", "http://172.31.255.255/", true},
		{"172.15 is public", "http://172.15.0.1/", false},
		{"172.32 is public", "http://172.32.0.1/", false},
		{"192.168.x.x", "https://192.168.1.1/path", true},
		{"loopback", "http://127.0.0.1/admin", true},
		{"loopback range", "http://127.10.20.30/", true},
		{"link-local", "http://169.254.169.254/latest/meta-data", true},
		{"this network", "http://0.0.0.0:8080/", true},
		{"CGNAT", "http://100.64.0.1/", true},

		// IPv4 public
		{"google dns", "http://8.8.8.8/", false},
		{"example.com address", "http://93.184.216.34/", false},
		{"public with port", "https://1.1.1.1:8443/dns-query", false},

		// Malformed or non-canonical IPv4
		{"octet above 255", "http://256.1.1.1/", true},
		{"last octet above 255", "http://8.8.8.999/", true},
		{"hex notation", "http://0x7f.0.0.1/", true},
		{"octal notation", "http://010.0.0.1/", true},
		{"integer notation", "http://2130706433/", true},
		{"short notation", "http://127.1/", true},
		{"five labels", "http://1.2.3.4.5/", true},

		// IPv6
		{"IPv6 loopback", "http://[::1]/", true},
		{"IPv6 loopback with port", "http://[::1]:8080/", true},
		{"IPv6 link-local", "http://[fe80::1]/", true},
		{"IPv6 link-local uppercase", "http://[FE80::abcd]/", true},
		{"IPv6 unique local fc", "http://[fc00::1]/", true},
		{"IPv6 unique local fd", "http://[fd12:3456:789a::1]/", true},
		{"IPv6-mapped loopback", "http://[::ffff:7f00:1]/", true},
		{"IPv6 unspecified", "http://[::]/", true},
		{"IPv6 public", "http://[2001:4860:4860::8888]/", false},

		// Hostnames
		{"localhost", "http://localhost/", true},
		{"localhost with port", "https://localhost:8080", true},
		{"localhost uppercase", "http://LOCALHOST/", true},
		{"localhost trailing dot", "http://localhost./", true},
		{"subdomain of localhost", "http://foo.localhost/", true},
		{".local domain", "https://myserver.local/api", true},
		{".internal domain", "https://app.internal/api", true},
		{"internal anywhere", "https://internal-docs.example.com/", true},
		{"metadata host", "http://metadata.google.internal/", true},
		{"public host", "https://go.dev/doc/effective_go", false},
		{"public host with numbers", "https://123.example.com/", false},

		// Parse failures and missing hosts
		{"no scheme", "not-a-url", true},
		{"empty", "", true},
		{"bad escape", "http://%zz/", true},
		{"control character", "http://exa\x7fmple.com/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsPrivateTarget(tt.url)
			if got != tt.expected {
				t.Errorf("IsPrivateTarget(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestIsPrivateHost_IPv4Ranges(t *testing.T) {
	ranges := []struct {
		name   string
		prefix func(i int) string
	}{
		{"10.0.0.0/8", func(i int) string { return fmt.Sprintf("10.%d.%d.%d", i, 255-i, i/2) }},
		{"172.16.0.0/12", func(i int) string { return fmt.Sprintf("172.%d.%d.%d", 16+i%16, i, 255-i) }},
		{"192.168.0.0/16", func(i int) string { return fmt.Sprintf("192.168.%d.%d", i, 255-i) }},
		{"127.0.0.0/8", func(i int) string { return fmt.Sprintf("127.%d.%d.%d", 255-i, i, i) }},
		{"169.254.0.0/16", func(i int) string { return fmt.Sprintf("169.254.%d.%d", i, i/3) }},
	}

	for _, r := range ranges {
		t.Run(r.name, func(t *testing.T) {
			for i := 0; i <= 255; i++ {
				host := r.prefix(i)
				if !IsPrivateHost(host) {
					t.Fatalf("IsPrivateHost(%q) = false, want true", host)
				}
			}
		})
	}
}

func TestIsPrivateHost_OctetAboveRange(t *testing.T) {
	for _, host := range []string{"300.1.1.1", "8.256.8.8", "8.8.1000.8", "93.184.216.999"} {
		if !IsPrivateHost(host) {
			t.Errorf("IsPrivateHost(%q) = false, want true", host)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		// IPv4 private ranges
		{"192.168.1.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"127.0.0.1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},

		// IPv4 public
		{"8.8.8.8", false},
		{"1.1.1.1", false},

		// CGNAT
		{"100.64.0.1", true},
		{"100.127.255.255", true},

		// IPv6
		{"::1", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:127.0.0.1", true},
		{"::ffff:8.8.8.8", false},
		{"fe80::1", true},
		{"fc00::1", true},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP: %s", tt.ip)
			}
			got := IsPrivateIP(ip)
			if got != tt.expected {
				t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://go.dev/doc/effective_go", "go.dev"},
		{"http://[::1]:8080/", "::1"},
		{"http://%zz/", ""},
	}

	for _, tt := range tests {
		if got := ExtractDomain(tt.url); got != tt.expected {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}

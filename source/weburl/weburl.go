// Package weburl classifies web URLs for SSRF prevention.
// Classification is lexical: hostnames are never resolved.
package weburl

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled CIDR networks for private/reserved IP ranges.
// These are parsed once at package initialization.
var (
	privateV4 []*net.IPNet // RFC 1918, loopback, link-local, this-network
	cgnat     *net.IPNet   // 100.64.0.0/10 - Carrier-grade NAT
	v6unique  *net.IPNet   // fc00::/7 - IPv6 unique local
	v6link    *net.IPNet   // fe80::/10 - IPv6 link-local
)

// blockedSubstrings is a coarse denylist applied to every hostname that is
// not an IPv4 literal. It matches public names such as "internal-tools.com".
var blockedSubstrings = []string{
	"localhost",
	"127.0.0.1",
	"::1",
	"local",
	"internal",
}

// numericLabelPattern matches an IPv4 label in decimal, octal or hex notation.
var numericLabelPattern = regexp.MustCompile(`^(0x[0-9a-f]*|[0-9]+)$`)

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"0.0.0.0/8",
	} {
		privateV4 = append(privateV4, mustParseCIDR(cidr))
	}

	cgnat = mustParseCIDR("100.64.0.0/10")
	v6unique = mustParseCIDR("fc00::/7")
	v6link = mustParseCIDR("fe80::/10")
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic("invalid CIDR " + cidr + ": " + err.Error())
	}
	return network
}

// IsPrivateTarget reports whether the host of rawURL denotes a private,
// loopback, link-local or otherwise internal-only location.
// A URL that cannot be parsed, or has no host, is reported as private.
func IsPrivateTarget(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return IsPrivateHost(parsed.Hostname())
}

// IsPrivateHost classifies a bare hostname or IP literal (without brackets).
func IsPrivateHost(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return true
	}

	if labels, ok := numericLabels(host); ok {
		return isPrivateIPv4Literal(labels)
	}

	if strings.Contains(host, ":") && isPrivateIPv6Literal(host) {
		return true
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	for _, s := range blockedSubstrings {
		if strings.Contains(host, s) {
			return true
		}
	}

	return false
}

// normalizeHost lowercases host and drops a single trailing root dot.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimSuffix(host, ".")
}

// numericLabels splits host on dots and reports whether every label is a
// number in any notation a resolver might accept for IPv4.
func numericLabels(host string) ([]string, bool) {
	labels := strings.Split(host, ".")
	for _, label := range labels {
		if !numericLabelPattern.MatchString(label) {
			return nil, false
		}
	}
	return labels, true
}

// isPrivateIPv4Literal classifies numeric labels. Only canonical dotted
// decimal quads are range-checked; every other numeric form (hex, octal,
// short forms like 127.1 or a bare integer) is treated as private.
func isPrivateIPv4Literal(labels []string) bool {
	if len(labels) != 4 {
		return true
	}

	octets := make([]byte, 4)
	for i, label := range labels {
		if strings.HasPrefix(label, "0x") {
			return true
		}
		if len(label) > 1 && label[0] == '0' {
			return true
		}
		if len(label) > 3 {
			return true
		}
		n, err := strconv.Atoi(label)
		if err != nil || n > 255 {
			return true
		}
		octets[i] = byte(n)
	}

	ip := net.IPv4(octets[0], octets[1], octets[2], octets[3])
	for _, network := range privateV4 {
		if network.Contains(ip) {
			return true
		}
	}
	return cgnat.Contains(ip)
}

// isPrivateIPv6Literal applies the prefix heuristic for loopback, link-local
// and unique-local addresses, then checks the parsed address. Strings that
// look like IPv6 but do not parse are treated as private.
func isPrivateIPv6Literal(host string) bool {
	if host == "::1" ||
		strings.HasPrefix(host, "fe80:") ||
		strings.HasPrefix(host, "fc") ||
		strings.HasPrefix(host, "fd") {
		return true
	}

	// Drop the zone, e.g. fe80::1%eth0.
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	return IsPrivateIP(ip)
}

// IsPrivateIP checks if a resolved IP is in private/reserved ranges.
// It handles IPv4, IPv6, and IPv6-mapped IPv4 addresses.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}

	// IPv6-mapped IPv4 addresses (::ffff:x.x.x.x)
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		for _, network := range privateV4 {
			if network.Contains(ip) {
				return true
			}
		}
	}

	if cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip) {
		return true
	}

	return false
}

// ExtractDomain extracts the host name from a URL.
// Returns an empty string if the URL is invalid.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

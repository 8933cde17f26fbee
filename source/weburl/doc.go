// Package weburl provides URL classification for SSRF prevention.
//
// # Overview
//
// IsPrivateTarget decides, before any network access, whether a URL's host
// denotes a private, loopback, link-local or otherwise internal-only network
// location. The decision is purely lexical. No DNS lookup is performed, so a
// public name that resolves to a private address is not caught here; the
// web fetcher offers an opt-in strict dialer for that case.
//
// # Classification
//
// Hosts are lowercased and a trailing root dot is dropped. Then:
//
//   - Empty hosts and unparseable URLs are private (fail closed)
//   - Dotted-decimal IPv4 with an octet above 255 is private
//   - IPv4 in 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, 127.0.0.0/8,
//     169.254.0.0/16, 0.0.0.0/8 and 100.64.0.0/10 is private
//   - Other numeric IPv4 notations (hex, octal, short or integer forms)
//     are private
//   - IPv6 literals equal to ::1 or starting with fe80:, fc or fd are
//     private, as are parsed IPv6 addresses in reserved ranges and
//     strings with a colon that do not parse
//   - localhost and *.localhost are private
//   - Any host containing localhost, 127.0.0.1, ::1, local or internal
//     is private
//
// The substring rule is intentionally broad and blocks some public hosts.
//
// # Policy
//
// A Policy adds operator-configured doublestar glob patterns on top of the
// private-target check:
//
//	policy, err := weburl.NewPolicy([]string{"*.corp.example.com", "metadata.*"})
//	if err != nil {
//	    return err
//	}
//	if err := policy.Check("https://wiki.corp.example.com/"); err != nil {
//	    // errors.Is(err, weburl.ErrBlockedHost)
//	}
//
// IsPrivateIP classifies an already resolved address and is used by dialers
// that resolve before connecting.
package weburl

// Package safefetch retrieves remote files on behalf of callers without turning
// the service into an open proxy: URLs naming loopback, private, link-local or
// cloud-metadata hosts are refused before any network activity, redirects are
// never followed and every request runs under a hard deadline.
package safefetch

import (
	"net/netip"
	"net/url"
	"strings"
)

// MetadataHost is the cloud instance-metadata hostname.
const MetadataHost = "metadata.google.internal"

var blockedHosts = map[string]struct{}{
	"localhost":  {},
	"::1":        {},
	"[::1]":      {},
	MetadataHost: {},
}

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/32"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsBlocked reports whether raw must not be fetched. Anything that does not
// parse as an absolute http(s) URL with a host is blocked.
//
// Only the literal host in the URL is inspected; names are not resolved, so a
// public name pointing at a private address is not caught here.
func IsBlocked(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return true
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return true
	}
	if _, ok := blockedHosts[host]; ok {
		return true
	}
	if strings.HasSuffix(host, ".localhost") {
		return true
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return isBlockedAddr(addr)
	}
	// Numeric forms such as 2130706433 or 0x7f.1 are accepted by some resolvers
	// as IPv4 addresses but are not dotted quads.
	return looksNumeric(host)
}

func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	if addr.Is6() && (addr.IsLoopback() || addr.IsUnspecified()) {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func looksNumeric(host string) bool {
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
		l := strings.TrimPrefix(label, "0x")
		if l == label && !isDigits(label) {
			return false
		}
		if l != label && !isHex(l) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

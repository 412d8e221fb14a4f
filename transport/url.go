package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/opd-ai/cotwire/config"
)

// ParseURL parses a COT_URL destination descriptor. The scheme is
// normalized to lowercase; a bare host:port without a scheme is rejected
// so misconfigurations fail before any socket is opened.
func ParseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		return nil, fmt.Errorf("transport: %q is not a full URL, expected scheme://host[:port]", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("transport: parsing %q: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// HostPort returns the destination host and port, applying the scheme
// family's default port when the URL names none: broadcast and multicast
// destinations default to the mesh SA port, everything else to the TAK
// stream port.
func HostPort(u *url.URL) (string, int) {
	host := u.Hostname()
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return host, n
		}
	}
	if strings.Contains(u.Scheme, "broadcast") || strings.Contains(u.Scheme, "multicast") {
		return host, config.DefaultBroadcastPort
	}
	return host, config.DefaultCoTPort
}

// IsMulticastHost reports whether host is an IP literal in a multicast
// range. DNS names never count, whatever they resolve to.
func IsMulticastHost(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsMulticast()
}

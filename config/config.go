package config

import (
	"os"
	"strconv"
	"strings"
)

// Configuration keys consumed by the cotwire pipeline. The names follow the
// TAK ecosystem conventions so existing deployment tooling maps onto them
// directly.
const (
	KeyCoTURL    = "COT_URL"
	KeyCoTHostID = "COT_HOST_ID"
	KeyNoHello   = "NO_HELLO"
	KeyDebug     = "DEBUG"

	KeyMaxInQueue  = "MAX_IN_QUEUE"
	KeyMaxOutQueue = "MAX_OUT_QUEUE"

	// TAK_PROTO selects the wire format: 0 emits CoT XML, anything greater
	// selects the binary TAK protocol (Mesh or Stream framing, chosen by the
	// destination's multicast-ness).
	KeyTAKProto = "TAK_PROTO"

	// FTS_COMPAT enables a random inter-event delay for FreeTAKServer
	// compatibility; COT_SLEEP forces a fixed delay in seconds.
	KeyFTSCompat = "FTS_COMPAT"
	KeyCoTSleep  = "COT_SLEEP"

	KeyMulticastLocalAddr = "MULTICAST_LOCAL_ADDR"
	KeyMulticastTTL       = "MULTICAST_TTL"

	KeyTLSClientCert             = "TLS_CLIENT_CERT"
	KeyTLSClientKey              = "TLS_CLIENT_KEY"
	KeyTLSClientCAFile           = "TLS_CLIENT_CAFILE"
	KeyTLSClientCiphers          = "TLS_CLIENT_CIPHERS"
	KeyTLSClientPassword         = "TLS_CLIENT_PASSWORD"
	KeyTLSDontCheckHostname      = "TLS_DONT_CHECK_HOSTNAME"
	KeyTLSDontVerify             = "TLS_DONT_VERIFY"
	KeyTLSServerExpectedHostname = "TLS_SERVER_EXPECTED_HOSTNAME"

	KeyTLSEnrollmentUsername   = "TLS_CERT_ENROLLMENT_USERNAME"
	KeyTLSEnrollmentPassword   = "TLS_CERT_ENROLLMENT_PASSWORD"
	KeyTLSEnrollmentURL        = "TLS_CERT_ENROLLMENT_URL"
	KeyTLSEnrollmentPassphrase = "TLS_CERT_ENROLLMENT_PASSPHRASE"
)

// Library defaults.
const (
	// DefaultCoTURL is the ATAK mesh SA multicast group, write-only.
	DefaultCoTURL = "udp+wo://239.2.3.1:6969"

	// DefaultCoTPort is the default port for stream-family destinations
	// (tcp, tls, ssl, unicast udp).
	DefaultCoTPort = 8087

	// DefaultBroadcastPort is the default port for broadcast/multicast
	// destinations.
	DefaultBroadcastPort = 6969

	DefaultMaxOutQueue = 100
	DefaultMaxInQueue  = 500

	// DefaultSleepSeconds bounds the random FTS_COMPAT delay.
	DefaultSleepSeconds = 5

	DefaultMulticastLocalAddr = "0.0.0.0"
	DefaultMulticastTTL       = 1

	// W3CXMLDatetime is the layout for CoT time/start/stale attributes.
	W3CXMLDatetime = "2006-01-02T15:04:05.000000Z"
)

// truthValues are the accepted spellings of boolean true.
var truthValues = map[string]bool{
	"true": true, "yes": true, "y": true, "on": true, "1": true,
}

// Config is an immutable string-keyed configuration for one transport
// endpoint. The zero value is not usable; construct with New or FromEnv.
type Config struct {
	name string
	vals map[string]string
}

// New builds a Config named name from the given values. The map is copied,
// so later mutation of vals does not affect the Config.
func New(name string, vals map[string]string) *Config {
	copied := make(map[string]string, len(vals))
	for k, v := range vals {
		copied[k] = v
	}
	return &Config{name: name, vals: copied}
}

// FromEnv builds a Config named name from a one-time snapshot of the process
// environment. This is the explicit replacement for ambient environment
// lookups: callers construct it once and hand it to each component.
func FromEnv(name string) *Config {
	vals := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.Contains(v, "%") {
			continue
		}
		vals[k] = v
	}
	return &Config{name: name, vals: vals}
}

// Name returns the endpoint name this Config was built for.
func (c *Config) Name() string {
	return c.name
}

// Get returns the raw value for key, or "" when unset.
func (c *Config) Get(key string) string {
	return c.vals[key]
}

// GetDefault returns the value for key, or def when unset or empty.
func (c *Config) GetDefault(key, def string) string {
	if v := c.vals[key]; v != "" {
		return v
	}
	return def
}

// GetBool reports whether key is set to one of the accepted truth values
// (true, yes, y, on, 1; case-insensitive).
func (c *Config) GetBool(key string) bool {
	return truthValues[strings.ToLower(strings.TrimSpace(c.vals[key]))]
}

// GetInt returns the integer value for key, or def when unset or malformed.
func (c *Config) GetInt(key string, def int) int {
	v := strings.TrimSpace(c.vals[key])
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// CoTURL returns the configured destination URL, falling back to the ATAK
// multicast default.
func (c *Config) CoTURL() string {
	return c.GetDefault(KeyCoTURL, DefaultCoTURL)
}

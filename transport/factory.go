package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cotwire/config"
)

// Endpoint is the reader/writer pair for one destination. Reader is nil for
// write-only sinks (udp+wo, log, file); Writer is always set on success.
type Endpoint struct {
	Reader Reader
	Writer Sink
}

// Close releases both halves. The endpoint's lifetime matches the worker
// pair that owns it.
func (e *Endpoint) Close() error {
	var first error
	if e.Reader != nil {
		first = e.Reader.Close()
	}
	if e.Writer != nil {
		if err := e.Writer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Factory builds Endpoints from destination descriptors. The zero value is
// usable; Log defaults to the logrus standard logger and Enroller may stay
// nil when certificate enrollment is not configured.
type Factory struct {
	Log      *logrus.Logger
	Enroller Enroller
}

func (f *Factory) logger() *logrus.Logger {
	if f.Log != nil {
		return f.Log
	}
	return logrus.StandardLogger()
}

// NewEndpoint translates cfg's destination URL into an Endpoint. An
// unrecognized or malformed descriptor fails here, before any worker
// starts.
func (f *Factory) NewEndpoint(ctx context.Context, cfg *config.Config) (*Endpoint, error) {
	u, err := ParseURL(cfg.CoTURL())
	if err != nil {
		return nil, err
	}

	f.logger().WithFields(logrus.Fields{
		"endpoint": cfg.Name(),
		"scheme":   u.Scheme,
		"host":     u.Hostname(),
	}).Info("Creating transport endpoint")

	switch {
	case u.Scheme == "tcp":
		return f.newTCPEndpoint(ctx, u)
	case u.Scheme == "tls" || u.Scheme == "ssl":
		return f.newTLSEndpoint(ctx, cfg, u)
	case strings.HasPrefix(u.Scheme, "udp"):
		return f.newUDPEndpoint(ctx, cfg, u)
	case u.Scheme == "log":
		return newLogEndpoint(u), nil
	case u.Scheme == "file":
		return newFileEndpoint(u)
	default:
		return nil, fmt.Errorf("transport: unsupported COT_URL scheme %q", u.Scheme)
	}
}

// NewEndpoint is the package-level convenience for a factory with no
// enrollment collaborator.
func NewEndpoint(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Endpoint, error) {
	f := &Factory{Log: log}
	return f.NewEndpoint(ctx, cfg)
}

func (f *Factory) newTCPEndpoint(ctx context.Context, u *url.URL) (*Endpoint, error) {
	host, port := HostPort(u)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return &Endpoint{
		Reader: NewStreamReader(conn),
		Writer: NewStreamSink(conn),
	}, nil
}

// newLogEndpoint writes frames to a process-standard stream. The host part
// selects stderr; anything else means stdout.
func newLogEndpoint(u *url.URL) *Endpoint {
	w := os.Stdout
	if strings.Contains(strings.ToLower(u.Hostname()), "stderr") {
		w = os.Stderr
	}
	sink := NewStreamSink(w)
	// Never close the process standard streams, and never fsync them:
	// Sync on a piped stdout/stderr fails with EINVAL.
	sink.close = nil
	sink.flush = nil
	return &Endpoint{Writer: sink}
}

// newFileEndpoint writes frames to a local file, creating parent
// directories on demand.
func newFileEndpoint(u *url.URL) (*Endpoint, error) {
	path := filepath.Join(u.Host, filepath.FromSlash(u.Path))
	if u.Host == "" {
		path = filepath.FromSlash(u.Path)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("transport: creating %s: %w", dir, err)
		}
	}
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transport: opening %s: %w", path, err)
	}
	return &Endpoint{Writer: NewStreamSink(fd)}, nil
}

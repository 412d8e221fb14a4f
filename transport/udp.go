package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/net/ipv4"

	"github.com/opd-ai/cotwire/config"
	"github.com/opd-ai/cotwire/dgram"
)

// newUDPEndpoint builds the datagram endpoint for every udp scheme variant:
// unicast, broadcast, multicast (explicit or auto-detected from the host)
// and write-only.
func (f *Factory) newUDPEndpoint(ctx context.Context, cfg *config.Config, u *url.URL) (*Endpoint, error) {
	host, port := HostPort(u)

	writeOnly := strings.Contains(u.Scheme, "+wo")
	broadcast := strings.Contains(u.Scheme, "broadcast")
	multicast := strings.Contains(u.Scheme, "multicast") || IsMulticastHost(host)

	localAddr := cfg.GetDefault(config.KeyMulticastLocalAddr, config.DefaultMulticastLocalAddr)
	ttl := cfg.GetInt(config.KeyMulticastTTL, config.DefaultMulticastTTL)

	network := "udp"
	if broadcast || multicast {
		// Broadcast and the ATAK mesh groups are IPv4 territory.
		network = "udp4"
	}

	writer, err := f.newUDPWriter(ctx, network, host, port, localAddr, broadcast, multicast, ttl)
	if err != nil {
		return nil, err
	}
	if writeOnly {
		return &Endpoint{Writer: writer}, nil
	}

	reader, err := f.newUDPReader(ctx, network, host, port, localAddr, broadcast, multicast)
	if err != nil {
		writer.Close()
		return nil, err
	}
	return &Endpoint{Reader: reader, Writer: writer}, nil
}

// newUDPWriter connects a datagram socket to the destination, with
// SO_BROADCAST and the multicast TTL applied before first use.
func (f *Factory) newUDPWriter(ctx context.Context, network, host string, port int, localAddr string, broadcast, multicast bool, ttl int) (*DatagramSink, error) {
	d := net.Dialer{
		LocalAddr: &net.UDPAddr{IP: net.ParseIP(localAddr)},
	}
	if broadcast {
		d.Control = sockoptControl(setBroadcast)
	}

	conn, err := d.DialContext(ctx, network, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("transport: expected UDP connection, got %T", conn)
	}

	if multicast {
		p := ipv4.NewPacketConn(udpConn)
		if err := p.SetMulticastTTL(ttl); err != nil {
			udpConn.Close()
			return nil, fmt.Errorf("transport: setting multicast TTL: %w", err)
		}
		if ifi := interfaceForAddr(localAddr); ifi != nil {
			if err := p.SetMulticastInterface(ifi); err != nil {
				udpConn.Close()
				return nil, fmt.Errorf("transport: selecting multicast interface: %w", err)
			}
		}
	}

	stream, err := dgram.FromPacketConn(udpConn)
	if err != nil {
		udpConn.Close()
		return nil, err
	}
	return NewDatagramSink(&dgram.Client{Stream: stream}), nil
}

// newUDPReader binds the local receive socket, applying address reuse for
// broadcast/multicast and joining the multicast group.
func (f *Factory) newUDPReader(ctx context.Context, network, host string, port int, localAddr string, broadcast, multicast bool) (*DatagramReader, error) {
	var lc net.ListenConfig
	switch {
	case broadcast:
		lc.Control = sockoptControl(setBroadcast, setReuseAddr)
	case multicast:
		lc.Control = sockoptControl(setReuseAddr)
	}

	// Binding the destination address filters foreign traffic; Windows only
	// accepts a wildcard bind for shared datagram sockets.
	bindHost := host
	if runtime.GOOS == "windows" {
		bindHost = ""
	}

	pc, err := lc.ListenPacket(ctx, network, net.JoinHostPort(bindHost, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	if multicast {
		group := net.ParseIP(host)
		if group == nil {
			pc.Close()
			return nil, fmt.Errorf("transport: multicast host %q is not an IP literal", host)
		}
		p := ipv4.NewPacketConn(pc.(*net.UDPConn))
		if err := p.JoinGroup(interfaceForAddr(localAddr), &net.UDPAddr{IP: group}); err != nil {
			pc.Close()
			return nil, fmt.Errorf("transport: joining group %s: %w", group, err)
		}
	}

	stream, err := dgram.FromPacketConn(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}
	return NewDatagramReader(stream), nil
}

// interfaceForAddr maps a configured local interface address to the owning
// interface. The wildcard (or an unknown) address returns nil, leaving the
// choice to the kernel.
func interfaceForAddr(localAddr string) *net.Interface {
	ip := net.ParseIP(localAddr)
	if ip == nil || ip.IsUnspecified() {
		return nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return &ifaces[i]
			}
		}
	}
	return nil
}

// sockoptControl composes raw socket options into a Dialer/ListenConfig
// Control function.
func sockoptControl(opts ...func(fd uintptr) error) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, raw syscall.RawConn) error {
		var optErr error
		err := raw.Control(func(fd uintptr) {
			for _, opt := range opts {
				if optErr = opt(fd); optErr != nil {
					return
				}
			}
		})
		if err != nil {
			return err
		}
		return optErr
	}
}

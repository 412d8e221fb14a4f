package dgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
)

// ErrClosed is returned by Send and Recv after the underlying transport has
// been closed, either locally via Close or by a fatal socket error.
var ErrClosed = errors.New("dgram: transport closed")

const (
	// maxDatagramSize is the largest UDP payload we will read.
	maxDatagramSize = 65507

	recvQueueSize = 512
	sendQueueSize = 64
	errQueueSize  = 16
)

// datagram pairs a payload with its source or destination address.
type datagram struct {
	data []byte
	addr net.Addr
}

// Stream wraps one datagram socket with blocking send/receive semantics.
// Use the Client and Server views for the address discipline that matches
// how the socket was created.
type Stream struct {
	conn   net.PacketConn
	wc     io.Writer // non-nil when the socket is connected to a peer
	peer   net.Addr

	recvq   chan datagram
	sendq   chan datagram
	errq    chan error
	drained *event

	done      chan struct{}
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Client is a Stream connected to one remote peer; Send takes no address.
type Client struct {
	*Stream
}

// Server is a Stream bound to a local address; every Send names its
// destination.
type Server struct {
	*Stream
}

// Bind creates a Server bound to a local address. A path-like address (one
// containing a path separator) binds a unixgram socket; host:port binds UDP,
// with the address family left to the resolver.
func Bind(addr string) (*Server, error) {
	conn, err := net.ListenPacket(networkFor(addr), addr)
	if err != nil {
		return nil, err
	}
	return &Server{Stream: newStream(conn, nil)}, nil
}

// Dial creates a Client connected to the remote address. A path-like
// address dials a unixgram socket; host:port dials UDP.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial(networkFor(addr), addr)
	if err != nil {
		return nil, err
	}
	pc, ok := conn.(net.PacketConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("dgram: %T is not a packet connection", conn)
	}
	return &Client{Stream: newStream(pc, conn.RemoteAddr())}, nil
}

// FromPacketConn adapts a pre-configured datagram socket into a Stream. The
// caller keeps responsibility for socket options already applied (broadcast
// flags, multicast membership and the like). The stream is classified as a
// client if the socket reports a peer, otherwise as a server; wrap the
// result in Client or Server accordingly. Only UDP and unixgram sockets are
// accepted.
func FromPacketConn(pc net.PacketConn) (*Stream, error) {
	switch c := pc.(type) {
	case *net.UDPConn:
		// Any UDP socket is fine, connected or not.
	case *net.UnixConn:
		if ua, ok := c.LocalAddr().(*net.UnixAddr); !ok || ua.Net != "unixgram" {
			return nil, fmt.Errorf("dgram: unix socket type must be unixgram, got %v", c.LocalAddr())
		}
	default:
		return nil, fmt.Errorf("dgram: unsupported socket type %T", pc)
	}

	var peer net.Addr
	if c, ok := pc.(net.Conn); ok {
		peer = c.RemoteAddr()
	}
	return newStream(pc, peer), nil
}

// networkFor picks the socket family from the shape of the address:
// path-like means a local-domain datagram socket, anything else UDP.
func networkFor(addr string) string {
	if strings.ContainsAny(addr, `/\`) {
		return "unixgram"
	}
	return "udp"
}

func newStream(conn net.PacketConn, peer net.Addr) *Stream {
	s := &Stream{
		conn:    conn,
		peer:    peer,
		recvq:   make(chan datagram, recvQueueSize),
		sendq:   make(chan datagram, sendQueueSize),
		errq:    make(chan error, errQueueSize),
		drained: newEvent(true),
		done:    make(chan struct{}),
	}
	if peer != nil {
		if wc, ok := conn.(io.Writer); ok {
			s.wc = wc
		}
	}
	go s.readLoop()
	go s.writeLoop()
	return s
}

// IsClient reports whether the stream's socket is connected to a peer.
func (s *Stream) IsClient() bool {
	return s.peer != nil
}

// LocalAddr returns the socket's own address.
func (s *Stream) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// RemoteAddr returns the connected peer address, or nil for server streams.
func (s *Stream) RemoteAddr() net.Addr {
	return s.peer
}

// Close shuts the stream down. It is idempotent: the first call closes the
// socket and releases blocked senders and receivers, later calls return nil.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		close(s.done)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Send transmits data. Client streams leave addr nil and use the connected
// peer; server streams must supply a destination. Send fails with ErrClosed
// once the transport is shutting down, re-raises any socket error queued
// since the previous call, and then blocks until the outbound buffer has
// drained below its high-water mark.
func (s *Stream) Send(ctx context.Context, data []byte, addr net.Addr) error {
	if s.closing.Load() {
		return ErrClosed
	}
	if err := s.takeErr(); err != nil {
		return err
	}
	if s.peer == nil && addr == nil {
		return errors.New("dgram: destination address required on an unconnected stream")
	}

	d := datagram{data: data, addr: addr}
	select {
	case s.sendq <- d:
	default:
		// Outbound buffer at high-water mark.
		s.drained.Clear()
		select {
		case s.sendq <- d:
		case <-s.done:
			return ErrClosed
		case <-ctx.Done():
			s.drained.Set()
			return ctx.Err()
		}
	}
	return s.drained.Wait(ctx)
}

// Recv blocks until a datagram arrives and returns the payload and source
// address. It fails with ErrClosed once the transport is shutting down and
// re-raises any socket error queued since the previous call.
func (s *Stream) Recv(ctx context.Context) ([]byte, net.Addr, error) {
	if s.closing.Load() {
		return nil, nil, ErrClosed
	}
	if err := s.takeErr(); err != nil {
		return nil, nil, err
	}

	select {
	case d := <-s.recvq:
		return d.data, d.addr, nil
	case <-s.done:
		return nil, nil, ErrClosed
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Send on a Client always targets the connected peer.
func (c *Client) Send(ctx context.Context, data []byte) error {
	return c.Stream.Send(ctx, data, nil)
}

// Send on a Server requires a destination address for every datagram.
func (s *Server) Send(ctx context.Context, data []byte, addr net.Addr) error {
	if addr == nil {
		return errors.New("dgram: server send requires a destination address")
	}
	return s.Stream.Send(ctx, data, addr)
}

// takeErr pops the oldest queued socket error, if any.
func (s *Stream) takeErr() error {
	select {
	case err := <-s.errq:
		return err
	default:
		return nil
	}
}

// pushErr records a socket error without blocking; once the queue is full
// further errors are dropped, the first unconsumed ones matter most.
func (s *Stream) pushErr(err error) {
	select {
	case s.errq <- err:
	default:
	}
}

// readLoop is the single producer into recvq and errq. Datagrams go to
// recvq, transient socket errors accumulate on errq, and a fatal error or
// socket close winds the whole stream down so pending senders, receivers
// and the writeLoop all release.
func (s *Stream) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if transientError(err) {
				s.pushErr(err)
				continue
			}
			if !errors.Is(err, net.ErrClosed) {
				s.pushErr(err)
			}
			s.Close()
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.recvq <- datagram{data: data, addr: addr}:
		case <-s.done:
			return
		}
	}
}

// writeLoop drains sendq to the socket and re-arms the drained signal once
// the buffer is empty. Write errors are delivered lazily via errq, matching
// how the kernel reports datagram failures.
func (s *Stream) writeLoop() {
	for {
		select {
		case d := <-s.sendq:
			var err error
			if s.wc != nil {
				_, err = s.wc.Write(d.data)
			} else {
				_, err = s.conn.WriteTo(d.data, d.addr)
			}
			if err != nil && !errors.Is(err, net.ErrClosed) {
				s.pushErr(err)
			}
			if len(s.sendq) == 0 {
				s.drained.Set()
			}
		case <-s.done:
			s.drained.Set()
			return
		}
	}
}

// transientError reports errors that should be queued without tearing the
// stream down: read timeouts and connection-refused notices on a connected
// UDP socket.
func transientError(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

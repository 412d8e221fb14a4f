package transport

import (
	"context"
	"io"

	"github.com/opd-ai/cotwire/dgram"
)

// Sink is the writer half of an Endpoint. It is a sealed interface with
// exactly two implementations, StreamSink and DatagramSink; workers resolve
// the variant once at construction instead of probing per send.
type Sink interface {
	Close() error

	sealedSink()
}

// flusher is satisfied by writers with their own buffering or durability
// call: *os.File (Sync) surfaces as syncer, bufio.Writer as flusher.
type flusher interface {
	Flush() error
}

type syncer interface {
	Sync() error
}

// StreamSink adapts a connection-oriented or file-like writer. Writes are
// synchronous in Go, so Drain is a contract no-op kept for symmetry with
// buffered transports; Flush forwards to the underlying writer when it has
// one.
type StreamSink struct {
	w     io.Writer
	flush func() error
	close func() error
}

// NewStreamSink wraps w. Flush and Close capabilities are resolved here,
// once.
func NewStreamSink(w io.Writer) *StreamSink {
	s := &StreamSink{w: w}
	switch v := w.(type) {
	case flusher:
		s.flush = v.Flush
	case syncer:
		s.flush = v.Sync
	}
	if c, ok := w.(io.Closer); ok {
		s.close = c.Close
	}
	return s
}

// Write sends p down the stream.
func (s *StreamSink) Write(p []byte) error {
	_, err := s.w.Write(p)
	return err
}

// Drain waits for the outbound buffer to flush. Stream writes in this
// package complete synchronously, so there is nothing to wait for.
func (s *StreamSink) Drain() error {
	return nil
}

// Flush forwards to the underlying writer's flush or sync call, if any.
func (s *StreamSink) Flush() error {
	if s.flush != nil {
		return s.flush()
	}
	return nil
}

// Close closes the underlying writer when it is closable. The process
// standard streams used by the log scheme are not.
func (s *StreamSink) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

func (s *StreamSink) sealedSink() {}

// DatagramSink adapts a connected datagram client: one Send is one frame on
// the wire.
type DatagramSink struct {
	client *dgram.Client
}

// NewDatagramSink wraps a connected datagram client.
func NewDatagramSink(c *dgram.Client) *DatagramSink {
	return &DatagramSink{client: c}
}

// Send transmits one datagram to the connected peer.
func (d *DatagramSink) Send(ctx context.Context, p []byte) error {
	return d.client.Send(ctx, p)
}

// Close closes the underlying datagram stream.
func (d *DatagramSink) Close() error {
	return d.client.Close()
}

func (d *DatagramSink) sealedSink() {}

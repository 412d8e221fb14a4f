package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"

	"github.com/opd-ai/cotwire/dgram"
)

// ErrNoData marks a read that produced no usable frame: the connection was
// lost partway through an event. It is a skip signal, not a failure.
var ErrNoData = errors.New("transport: no data")

// eventDelimiter closes every CoT XML document on a stream transport.
var eventDelimiter = []byte("</event>")

// Reader is the reader half of an Endpoint: either a StreamReader framing
// documents off a byte stream, or a DatagramReader where one receive is one
// frame.
type Reader interface {
	Close() error

	sealedReader()
}

// StreamReader frames CoT documents off a connection-oriented byte stream
// by scanning for the closing event delimiter.
type StreamReader struct {
	br    *bufio.Reader
	close func() error
}

// NewStreamReader wraps r for delimiter framing.
func NewStreamReader(r io.Reader) *StreamReader {
	sr := &StreamReader{br: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		sr.close = c.Close
	}
	return sr
}

// ReadFrame reads exactly one CoT document, delimiter included. A
// connection loss mid-document returns ErrNoData (the partial document is
// discarded); end of stream at a document boundary returns io.EOF.
func (r *StreamReader) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if len(frame) > 0 {
				return nil, ErrNoData
			}
			return nil, err
		}
		frame = append(frame, b)
		if bytes.HasSuffix(frame, eventDelimiter) {
			return frame, nil
		}
	}
}

// Close closes the underlying stream when it is closable.
func (r *StreamReader) Close() error {
	if r.close != nil {
		return r.close()
	}
	return nil
}

func (r *StreamReader) sealedReader() {}

// DatagramReader adapts a bound datagram stream: one receive call yields
// one complete frame.
type DatagramReader struct {
	stream *dgram.Stream
}

// NewDatagramReader wraps a bound datagram stream.
func NewDatagramReader(s *dgram.Stream) *DatagramReader {
	return &DatagramReader{stream: s}
}

// Recv returns the next datagram and its source address.
func (r *DatagramReader) Recv(ctx context.Context) ([]byte, net.Addr, error) {
	return r.stream.Recv(ctx)
}

// Close closes the underlying datagram stream.
func (r *DatagramReader) Close() error {
	return r.stream.Close()
}

func (r *DatagramReader) sealedReader() {}

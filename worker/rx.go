package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cotwire/config"
	"github.com/opd-ai/cotwire/queue"
	"github.com/opd-ai/cotwire/transport"
)

// RXWorker fills a queue from an endpoint reader. Truncated reads are
// skipped; a dead reader stops the worker. An endpoint without a reader
// (write-only schemes) parks the worker until cancellation so its sibling
// TX worker keeps a uniform lifecycle.
type RXWorker struct {
	Worker

	reader transport.Reader
	read   func(ctx context.Context) ([]byte, error)
}

// NewRXWorker builds an RXWorker around the given queue and endpoint
// reader. reader may be nil for write-only endpoints. The reader variant is
// resolved here, once.
func NewRXWorker(q *queue.Queue, cfg *config.Config, log *logrus.Logger, reader transport.Reader) (*RXWorker, error) {
	w, err := newWorker(q, cfg, log)
	if err != nil {
		return nil, err
	}
	w.capacityKey = config.KeyMaxInQueue
	r := &RXWorker{Worker: w, reader: reader}

	switch rd := reader.(type) {
	case nil:
	case *transport.StreamReader:
		r.read = func(context.Context) ([]byte, error) {
			return rd.ReadFrame()
		}
	case *transport.DatagramReader:
		r.read = func(ctx context.Context) ([]byte, error) {
			data, _, err := rd.Recv(ctx)
			return data, err
		}
	default:
		return nil, fmt.Errorf("worker: unsupported reader %T", reader)
	}
	return r, nil
}

// Run fills the queue until ctx is cancelled or the reader dies.
func (r *RXWorker) Run(ctx context.Context) error {
	if r.read == nil {
		r.log.Debug("Endpoint has no reader, RXWorker parked")
		<-ctx.Done()
		return ctx.Err()
	}

	r.log.Info("Running RXWorker")
	for {
		data, err := r.ReadCoT(ctx)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		if r.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			r.log.WithField("bytes", len(data)).Debug("RX frame")
		}
		r.PutQueue(data, nil)
	}
}

// ReadCoT returns the next inbound frame, decoded from the binary wire
// format when one is in use. A truncated read yields (nil, nil): skip and
// read again.
func (r *RXWorker) ReadCoT(ctx context.Context) ([]byte, error) {
	data, err := r.read(ctx)
	if err != nil {
		if errors.Is(err, transport.ErrNoData) {
			return nil, nil
		}
		return nil, err
	}
	if r.useBinary {
		if xmlData, ok := r.codec.Decode(data); ok {
			data = xmlData
		}
	}
	return data, nil
}

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

// TXWorker drains a queue into an endpoint writer. Frames leave the queue
// in order; a frame that fails payload-level encoding is sent unmodified,
// while a transport-level send failure stops the worker.
type TXWorker struct {
	Worker

	sink transport.Sink
	send func(ctx context.Context, data []byte) error
}

// NewTXWorker builds a TXWorker around the given queue and endpoint writer.
// The sink variant is resolved here, once; per-frame sends never probe.
func NewTXWorker(q *queue.Queue, cfg *config.Config, log *logrus.Logger, sink transport.Sink) (*TXWorker, error) {
	w, err := newWorker(q, cfg, log)
	if err != nil {
		return nil, err
	}
	t := &TXWorker{Worker: w, sink: sink}

	switch s := sink.(type) {
	case *transport.StreamSink:
		t.send = func(_ context.Context, data []byte) error {
			if err := s.Write(data); err != nil {
				return err
			}
			if err := s.Drain(); err != nil {
				return err
			}
			return s.Flush()
		}
	case *transport.DatagramSink:
		t.send = s.Send
	case nil:
		return nil, errors.New("worker: tx worker requires an endpoint writer")
	default:
		return nil, fmt.Errorf("worker: unsupported sink %T", sink)
	}
	return t, nil
}

// Run drains the queue until ctx is cancelled or a transport send fails.
func (t *TXWorker) Run(ctx context.Context) error {
	t.log.Info("Running TXWorker")
	for {
		data, err := t.Queue.Get(ctx)
		if err != nil {
			return err
		}
		if err := t.HandleData(ctx, data); err != nil {
			return err
		}
		t.compatDelay(ctx)
	}
}

// HandleData transmits one frame. Empty frames are dropped with a warning;
// only transport failures return an error.
func (t *TXWorker) HandleData(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		t.log.Warn("Skipping empty payload")
		return nil
	}
	if t.useBinary {
		enc, err := t.codec.Encode(data, t.protoVersion)
		if err != nil {
			t.log.WithError(err).Warn("Could not convert XML to protobuf, sending as-is")
		} else {
			data = enc
		}
	}
	return t.send(ctx, data)
}

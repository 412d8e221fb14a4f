package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cotwire/codec"
	"github.com/opd-ai/cotwire/config"
	"github.com/opd-ai/cotwire/queue"
	"github.com/opd-ai/cotwire/transport"
)

// Worker is the shared core of the pipeline workers: one queue, one Config,
// and the protocol-format decision, resolved once at construction.
type Worker struct {
	Queue  *queue.Queue
	Config *config.Config

	log *logrus.Entry

	// capacityKey names the setting to raise when this worker's queue
	// overflows: MAX_OUT_QUEUE for the outbound side, MAX_IN_QUEUE for
	// inbound.
	capacityKey string

	useBinary    bool
	protoVersion codec.Version
	codec        codec.Codec
}

func newWorker(q *queue.Queue, cfg *config.Config, log *logrus.Logger) (Worker, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := Worker{
		Queue:       q,
		Config:      cfg,
		log:         log.WithField("endpoint", cfg.Name()),
		capacityKey: config.KeyMaxOutQueue,
	}

	if takProto := cfg.GetInt(config.KeyTAKProto, 0); takProto > 0 {
		c := codec.Registered()
		if c == nil {
			return Worker{}, fmt.Errorf(
				"worker: %s=%d requires a binary codec; register one with codec.Register before building workers",
				config.KeyTAKProto, takProto)
		}
		w.codec = c
		w.useBinary = true
		w.protoVersion = protoVersionFor(cfg)
	}
	return w, nil
}

// protoVersionFor picks the binary encapsulation from the destination:
// Mesh for a multicast host, Stream for everything else (including DNS
// names, which never count as multicast).
func protoVersionFor(cfg *config.Config) codec.Version {
	u, err := transport.ParseURL(cfg.CoTURL())
	if err != nil {
		return codec.Stream
	}
	if transport.IsMulticastHost(u.Hostname()) {
		return codec.Mesh
	}
	return codec.Stream
}

// compatDelay applies the configured compatibility delay: a fixed COT_SLEEP
// in seconds, or a random delay under FTS_COMPAT for servers that drop
// rapid-fire senders.
func (w *Worker) compatDelay(ctx context.Context) {
	var d time.Duration
	if s := w.Config.GetInt(config.KeyCoTSleep, 0); s > 0 {
		d = time.Duration(s) * time.Second
	} else if w.Config.GetBool(config.KeyFTSCompat) {
		d = time.Duration(rand.Float64() * float64(config.DefaultSleepSeconds) * float64(time.Second))
	}
	if d <= 0 {
		return
	}

	w.log.WithField("delay", d).Debug("Applying compatibility delay")
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// PutQueue admits data onto q (the worker's own queue when q is nil) with
// the shared backpressure policy: a full queue evicts its oldest entry
// first — live tail, drop history.
func (w *Worker) PutQueue(data []byte, q *queue.Queue) {
	if q == nil {
		q = w.Queue
	}
	if q.Put(data) {
		w.log.Warnf("Queue full, dropping oldest data; consider raising %s", w.capacityKey)
	}
}

// QueueWorker is the base for application-side producers and consumers: it
// serializes application messages as CoT and puts them onto the TX queue
// via PutQueue.
type QueueWorker struct {
	Worker
}

// NewQueueWorker builds a QueueWorker around the given queue.
func NewQueueWorker(q *queue.Queue, cfg *config.Config, log *logrus.Logger) (*QueueWorker, error) {
	w, err := newWorker(q, cfg, log)
	if err != nil {
		return nil, err
	}
	w.log.Infof("Using COT_URL=%q", cfg.CoTURL())
	return &QueueWorker{Worker: w}, nil
}

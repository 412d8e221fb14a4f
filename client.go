package cotwire

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cotwire/config"
	"github.com/opd-ai/cotwire/cot"
	"github.com/opd-ai/cotwire/queue"
	"github.com/opd-ai/cotwire/transport"
	"github.com/opd-ai/cotwire/worker"
)

// Task is one unit of pipeline work: transport workers and application
// producers/consumers alike. Run blocks until the task is done or ctx is
// cancelled.
type Task interface {
	Run(ctx context.Context) error
}

// QueuePair couples one endpoint's outbound and inbound queues.
type QueuePair struct {
	TX *queue.Queue
	RX *queue.Queue
}

// Client wires endpoints, queues and workers together and runs them.
type Client struct {
	cfg     *config.Config
	log     *logrus.Logger
	factory *transport.Factory

	tasks     []Task
	endpoints []*transport.Endpoint

	pairs       map[string]QueuePair
	defaultPair QueuePair
}

// New creates a Client around the given configuration. A nil log uses the
// logrus standard logger.
func New(cfg *config.Config, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.GetBool(config.KeyDebug) {
		log.SetLevel(logrus.DebugLevel)
	}
	return &Client{
		cfg:     cfg,
		log:     log,
		factory: &transport.Factory{Log: log},
		pairs:   make(map[string]QueuePair),
	}
}

// SetEnroller installs the certificate enrollment collaborator used when a
// TLS endpoint is configured with enrollment credentials instead of a
// client certificate.
func (c *Client) SetEnroller(e transport.Enroller) {
	c.factory.Enroller = e
}

// AddTask registers a task to be started by Run.
func (c *Client) AddTask(t Task) {
	c.tasks = append(c.tasks, t)
}

// DefaultQueues returns the queue pair of the first endpoint created.
func (c *Client) DefaultQueues() QueuePair {
	return c.defaultPair
}

// Queues returns the queue pair of the named endpoint.
func (c *Client) Queues(name string) (QueuePair, bool) {
	p, ok := c.pairs[name]
	return p, ok
}

// CreateWorkers builds one endpoint from cfg with a fresh bounded queue
// pair and registers its TX and RX workers as tasks. The first endpoint
// created becomes the default pair.
func (c *Client) CreateWorkers(ctx context.Context, cfg *config.Config) error {
	ep, err := c.factory.NewEndpoint(ctx, cfg)
	if err != nil {
		return err
	}

	pair := QueuePair{
		TX: queue.New(cfg.GetInt(config.KeyMaxOutQueue, config.DefaultMaxOutQueue)),
		RX: queue.New(cfg.GetInt(config.KeyMaxInQueue, config.DefaultMaxInQueue)),
	}

	tx, err := worker.NewTXWorker(pair.TX, cfg, c.log, ep.Writer)
	if err != nil {
		ep.Close()
		return err
	}
	rx, err := worker.NewRXWorker(pair.RX, cfg, c.log, ep.Reader)
	if err != nil {
		ep.Close()
		return err
	}

	c.endpoints = append(c.endpoints, ep)
	c.pairs[cfg.Name()] = pair
	if c.defaultPair.TX == nil {
		c.defaultPair = pair
	}
	c.AddTask(tx)
	c.AddTask(rx)
	return nil
}

// Setup creates workers for several endpoint configurations. Endpoints are
// independent: a failing one is logged and skipped while the rest proceed.
// Setup fails only when no endpoint could be created.
func (c *Client) Setup(ctx context.Context, configs ...*config.Config) error {
	created := 0
	for _, cfg := range configs {
		if err := c.CreateWorkers(ctx, cfg); err != nil {
			c.log.WithError(err).WithField("endpoint", cfg.Name()).
				Error("Could not create workers for endpoint, skipping")
			continue
		}
		created++
	}
	if created == 0 && len(configs) > 0 {
		return errors.New("cotwire: no endpoint could be created")
	}
	return nil
}

// hello puts one self-announce event on the default TX queue so stream
// servers see the client before its first real event.
func (c *Client) hello() {
	hostID := c.cfg.GetDefault(config.KeyCoTHostID, cot.DefaultHostID())
	if c.defaultPair.TX.Put(cot.HelloEvent(hostID)) {
		c.log.Warn("Queue full, hello event evicted older data")
	}
}

// Run starts every registered task in its own goroutine and returns the
// result of the first one to terminate, success or failure. Sibling tasks
// are not cancelled; supervision is the caller's concern. Unless NO_HELLO
// is set, a hello event is queued on the default pair first.
func (c *Client) Run(ctx context.Context) error {
	if len(c.tasks) == 0 {
		return errors.New("cotwire: no tasks to run, call CreateWorkers first")
	}

	if !c.cfg.GetBool(config.KeyNoHello) && c.defaultPair.TX != nil {
		c.hello()
	}

	c.log.WithField("tasks", len(c.tasks)).Info("Running client")
	done := make(chan error, len(c.tasks))
	for _, t := range c.tasks {
		t := t
		go func() {
			done <- t.Run(ctx)
		}()
	}

	err := <-done
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.WithError(err).Error("Task terminated")
	}
	return err
}

// Close closes every endpoint the client created.
func (c *Client) Close() error {
	var firstErr error
	for _, ep := range c.endpoints {
		if err := ep.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cotwire: closing endpoint: %w", err)
		}
	}
	return firstErr
}

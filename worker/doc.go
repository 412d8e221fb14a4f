// Package worker moves event frames between bounded queues and transport
// endpoints.
//
// A TXWorker drains its queue into an endpoint's writer; an RXWorker fills
// its queue from an endpoint's reader. Each worker drives exactly one
// direction of exactly one endpoint and runs until cancelled or until a
// transport failure propagates out of its loop — payload-level faults
// (malformed XML at encode time, truncated reads) are handled in place and
// never stop a worker.
//
// QueueWorker is the base for application-side producers: it carries the
// shared drop-oldest backpressure policy for putting frames onto a queue.
package worker

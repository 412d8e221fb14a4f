// Package queue implements the bounded byte-payload FIFO that connects the
// application to the cotwire worker pipeline.
//
// Each queue has exactly one producer side and one consumer side: the TX
// queue carries events from the application to the socket worker, the RX
// queue carries received events from the socket worker to the application.
// Overflow is handled with drop-oldest eviction ("live tail, drop history"):
// CoT messages supersede earlier state for the same identity, so recency
// wins over completeness.
package queue

// Package cot generates minimal Cursor-on-Target events.
//
// Only the handful of events the transport layer itself needs are covered:
// the takPing liveness hello, its takPong counterpart, and a small Event
// struct for callers that want to emit simple position reports without
// pulling in a full CoT schema implementation.
package cot

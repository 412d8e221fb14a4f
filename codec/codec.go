package codec

import (
	"sync"
)

// Version selects the binary encapsulation of the TAK protocol.
type Version int

const (
	// Mesh framing is used for multicast destinations.
	Mesh Version = iota + 1
	// Stream framing is used for point-to-point destinations.
	Stream
)

// String returns the conventional name of the encapsulation.
func (v Version) String() string {
	switch v {
	case Mesh:
		return "mesh"
	case Stream:
		return "stream"
	default:
		return "unknown"
	}
}

// Codec transcodes between CoT XML documents and the binary TAK wire format.
type Codec interface {
	// Encode converts one CoT XML document into a binary frame with the
	// given encapsulation.
	Encode(xml []byte, v Version) ([]byte, error)

	// Decode converts a binary frame back into a CoT XML document. ok is
	// false when the frame is not in the binary wire format, in which case
	// the caller keeps the frame as-is.
	Decode(frame []byte) (xml []byte, ok bool)
}

var (
	mu         sync.RWMutex
	registered Codec
)

// Register installs the process-wide binary codec. Passing nil removes it.
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	registered = c
}

// Registered returns the installed codec, or nil when none is available.
func Registered() Codec {
	mu.RLock()
	defer mu.RUnlock()
	return registered
}

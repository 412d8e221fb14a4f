// Package codec defines the seam between the cotwire pipeline and a binary
// TAK protocol implementation.
//
// The pipeline itself treats payloads as opaque frames; when a destination
// is configured for the binary wire format (TAK_PROTO > 0) the workers call
// through the Codec interface to transcode between CoT XML and the Mesh or
// Stream encapsulation. The concrete codec is an external collaborator:
// applications register one with Register before building workers. Worker
// construction fails fast when binary framing is requested and no codec is
// registered, rather than discovering the gap per message.
package codec

// Package transport turns a CoT destination descriptor into a uniform
// reader/writer pair, isolating every transport-specific detail from the
// worker pipeline.
//
// A destination descriptor is a URL of the form scheme://host[:port].
// Supported schemes:
//
//	tcp            plain bidirectional stream connection
//	tls, ssl       TLS stream connection with client certificate
//	udp            unicast datagrams (bound reader, connected writer)
//	udp+broadcast  broadcast datagrams (SO_BROADCAST, SO_REUSEADDR)
//	udp+multicast  multicast datagrams (group join, TTL); also auto-detected
//	               when the host is a multicast IP literal
//	udp+wo         write-only datagrams (no reader is set up)
//	log            write-only sink to stdout, or stderr if the host
//	               contains "stderr"
//	file           write-only sink to a local file, parent directories
//	               created on demand
//
// Default ports are 8087 for the stream family and 6969 for the
// broadcast family.
//
// The writer half of an endpoint is a sealed Sink with exactly two
// variants: StreamSink (write/drain/flush) and DatagramSink (send). The
// factory resolves the variant once; workers never probe per message.
package transport

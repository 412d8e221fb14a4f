// Package dgram bridges connectionless datagram sockets into stream-style
// objects with blocking send/receive, bounded buffering and lazy error
// delivery.
//
// Datagram sockets surface failures retrospectively: a send to an
// unreachable peer succeeds locally and the ICMP error arrives later, so a
// failure is reported on a subsequent call rather than the one that caused
// it. Each Stream therefore keeps an error queue that Send and Recv drain
// before doing any work.
//
// A Stream is created by Bind (local server socket), Dial (socket connected
// to one remote peer) or FromPacketConn (adopting a caller-configured
// socket, e.g. one with broadcast or multicast options already set). Exactly
// one goroutine reads the socket and is the only writer into the stream's
// shared queues, so no locking is needed around them.
package dgram

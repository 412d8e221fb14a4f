//go:build !windows

package transport

import (
	"golang.org/x/sys/unix"
)

// setBroadcast enables SO_BROADCAST on the socket.
func setBroadcast(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
}

// setReuseAddr enables SO_REUSEADDR and, where the platform has it,
// SO_REUSEPORT, so several listeners can share a broadcast or multicast
// port.
func setReuseAddr(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	// Not every platform supports SO_REUSEPORT; failure is non-fatal.
	_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	return nil
}

//go:build windows

package transport

import (
	"golang.org/x/sys/windows"
)

// setBroadcast enables SO_BROADCAST on the socket.
func setBroadcast(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
}

// setReuseAddr enables SO_REUSEADDR; Windows has no SO_REUSEPORT.
func setReuseAddr(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}

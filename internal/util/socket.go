//go:build !windows

package util

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ReuseAddrControl is a net.ListenConfig Control hook that sets SO_REUSEADDR
// before bind, so a restarted daemon can take its port back immediately.
func ReuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			sockErr = fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

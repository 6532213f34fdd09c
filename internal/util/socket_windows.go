//go:build windows

package util

import "syscall"

// ReuseAddrControl is a no-op on Windows, where SO_REUSEADDR allows port hijacking.
func ReuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}

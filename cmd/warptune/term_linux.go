//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// isTTY reports whether f is attached to a terminal. TCGETS only succeeds
// on terminal devices, so the probe doubles as the detection.
func isTTY(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}

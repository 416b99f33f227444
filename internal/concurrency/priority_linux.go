//go:build linux
// +build linux

// internal/concurrency/priority_linux.go
// Author: momentics <momentics@gmail.com>
//
// Per-thread scheduling priority on Linux.

package concurrency

import "golang.org/x/sys/unix"

// SetThreadPriority applies a nice value to the calling OS thread. The
// caller must hold runtime.LockOSThread.
func SetThreadPriority(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice)
}

//go:build !linux
// +build !linux

// internal/concurrency/priority_other.go
// Author: momentics <momentics@gmail.com>

package concurrency

import "github.com/momentics/wldispatch/api"

// SetThreadPriority is not supported on this platform.
func SetThreadPriority(nice int) error {
	return api.ErrNotSupported
}

//go:build !linux
// +build !linux

// File: internal/concurrency/affinity_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/wldispatch/api"

// PinThread is not supported on this platform.
func PinThread(cpus []int) error {
	if len(cpus) == 0 {
		return nil
	}
	return api.ErrNotSupported
}

// ThreadCPUs is not supported on this platform.
func ThreadCPUs() ([]int, error) {
	return nil, api.ErrNotSupported
}

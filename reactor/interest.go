// File: reactor/interest.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness interest mask.

package reactor

import (
	"errors"
	"strings"
)

// ErrClosed is returned by Wake after Close.
var ErrClosed = errors.New("reactor: multiplexer closed")

// DefaultBatch is the number of ready events collected per Wait.
const DefaultBatch = 16

// Interest is a readiness mask for a registered descriptor.
type Interest uint32

const (
	Read Interest = 1 << iota
	Write
	// Error covers both error and hangup; it is always part of a registration.
	Error
)

func (i Interest) String() string {
	var parts []string
	if i&Read != 0 {
		parts = append(parts, "read")
	}
	if i&Write != 0 {
		parts = append(parts, "write")
	}
	if i&Error != 0 {
		parts = append(parts, "error")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Ready reports readiness of one descriptor.
type Ready struct {
	Fd     int
	Events Interest
}

// Multiplexer is the readiness contract consumed by the pump.
type Multiplexer interface {
	Register(fd int, in Interest) error
	Modify(fd int, in Interest) error
	// Wait blocks until a registered descriptor is ready or timeoutMs elapses
	// (negative means forever) and fills ready. A Wake returns (0, nil).
	Wait(ready []Ready, timeoutMs int) (int, error)
	Wake() error
	Close() error
}

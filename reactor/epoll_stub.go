//go:build !linux
// +build !linux

// File: reactor/epoll_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "errors"

// ErrUnsupported is returned by New on platforms without epoll.
var ErrUnsupported = errors.New("reactor: this platform is not supported")

// Epoll is unavailable on this platform.
type Epoll struct{}

// New returns ErrUnsupported; dispatchers fall back to direct mode.
func New(maxEvents int) (*Epoll, error) {
	return nil, ErrUnsupported
}

func (e *Epoll) Register(fd int, in Interest) error             { return ErrUnsupported }
func (e *Epoll) Modify(fd int, in Interest) error               { return ErrUnsupported }
func (e *Epoll) Wait(ready []Ready, timeoutMs int) (int, error) { return 0, ErrUnsupported }
func (e *Epoll) Wake() error                                    { return ErrUnsupported }
func (e *Epoll) Close() error                                   { return nil }

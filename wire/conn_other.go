//go:build !linux
// +build !linux

// File: wire/conn_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket connections are only implemented on Linux.

package wire

import "github.com/momentics/wldispatch/api"

// Conn is unavailable on this platform.
type Conn struct{}

var _ api.Connection = (*Conn)(nil)

var errUnsupported = api.NewError(api.ErrCodeNotSupported, "wire: unix stream sockets").Wrap(api.ErrNotSupported)

// Dial returns an error matching api.ErrNotSupported.
func Dial(path string) (*Conn, error) { return nil, errUnsupported }

// NewConn returns an error matching api.ErrNotSupported.
func NewConn(fd int) (*Conn, error) { return nil, errUnsupported }

func (c *Conn) Fd() int                               { return -1 }
func (c *Conn) SetListener(l api.InputListener)       {}
func (c *Conn) SetDoneHandler(fn func(serial uint32)) {}
func (c *Conn) Send(f Frame) error                    { return api.ErrNotSupported }
func (c *Conn) Sync() (uint32, error)                 { return 0, api.ErrNotSupported }
func (c *Conn) Buffered() int                         { return 0 }
func (c *Conn) Flush() error                          { return api.ErrNotSupported }
func (c *Conn) PrepareRead() error                    { return api.ErrNotSupported }
func (c *Conn) CancelRead()                           {}
func (c *Conn) ReadEvents() error                     { return api.ErrNotSupported }
func (c *Conn) DispatchPending() (int, error)         { return 0, api.ErrNotSupported }
func (c *Conn) Dispatch() (int, error)                { return 0, api.ErrNotSupported }
func (c *Conn) Close() error                          { return nil }

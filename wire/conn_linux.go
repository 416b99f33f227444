//go:build linux
// +build linux

// File: wire/conn_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn is the client end of a framed display connection over a
// non-blocking unix stream socket.

package wire

import (
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/wldispatch/api"
)

const readChunk = 4096

// Conn implements api.Connection. Send and Sync may be called from any
// goroutine; every other method belongs to the dispatch thread.
type Conn struct {
	fd int

	outMu sync.Mutex
	out   []byte

	in       []byte
	queue    []Frame
	prepared bool
	listener api.InputListener
	onDone   func(serial uint32)

	serial    atomic.Uint32
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ api.Connection = (*Conn)(nil)

// Dial connects to the display socket at path.
func Dial(path string) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, api.NewError(api.ErrCodeResource, "wire: socket").Wrap(err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, api.NewError(api.ErrCodeConnection, "wire: connect").
			WithContext("path", path).Wrap(err)
	}
	return &Conn{fd: fd}, nil
}

// NewConn adopts an already connected stream socket and makes it
// non-blocking.
func NewConn(fd int) (*Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, pkgerrors.Wrap(err, "wire: set nonblock")
	}
	return &Conn{fd: fd}, nil
}

// Fd implements api.Connection.
func (c *Conn) Fd() int { return c.fd }

// SetListener installs the receiver of decoded input events. It must be
// set before polling starts.
func (c *Conn) SetListener(l api.InputListener) { c.listener = l }

// SetDoneHandler installs the callback for sync round trips.
func (c *Conn) SetDoneHandler(fn func(serial uint32)) { c.onDone = fn }

// Send queues f for the next Flush.
func (c *Conn) Send(f Frame) error {
	if c.closed.Load() {
		return api.ErrConnectionClosed
	}
	c.outMu.Lock()
	c.out = AppendFrame(c.out, f)
	c.outMu.Unlock()
	return nil
}

// Sync queues a round-trip request and returns its serial; the peer answers
// with a Done event carrying it.
func (c *Conn) Sync() (uint32, error) {
	serial := c.serial.Add(1)
	return serial, c.Send(SyncFrame(serial))
}

// Buffered returns the number of bytes waiting to be flushed.
func (c *Conn) Buffered() int {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return len(c.out)
}

// Flush writes queued requests. Backpressure leaves the remainder queued
// and returns an error matching api.IsWouldBlock.
func (c *Conn) Flush() error {
	if c.closed.Load() {
		return api.ErrConnectionClosed
	}
	c.outMu.Lock()
	defer c.outMu.Unlock()
	for len(c.out) > 0 {
		n, err := unix.Write(c.fd, c.out)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return pkgerrors.Wrap(err, "wire: write")
		}
		c.out = c.out[n:]
	}
	c.out = nil
	return nil
}

// PrepareRead announces the intention to read. It fails with
// api.ErrQueueNotEmpty while decoded events await dispatch.
func (c *Conn) PrepareRead() error {
	if c.closed.Load() {
		return api.ErrConnectionClosed
	}
	if len(c.queue) > 0 {
		return api.ErrQueueNotEmpty
	}
	c.prepared = true
	return nil
}

// CancelRead withdraws a PrepareRead.
func (c *Conn) CancelRead() { c.prepared = false }

// ReadEvents reads whatever the socket holds without blocking and queues
// the complete frames.
func (c *Conn) ReadEvents() error {
	c.prepared = false
	_, err := c.readAvailable()
	return err
}

// readAvailable returns the number of bytes read; zero with a nil error
// means the socket had nothing.
func (c *Conn) readAvailable() (int, error) {
	if c.closed.Load() {
		return 0, api.ErrConnectionClosed
	}
	var buf [readChunk]byte
	total := 0
	for {
		n, err := unix.Read(c.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			break
		}
		if err != nil {
			return total, pkgerrors.Wrap(err, "wire: read")
		}
		if n == 0 {
			return total, api.ErrConnectionClosed
		}
		c.in = append(c.in, buf[:n]...)
		total += n
		if n < len(buf) {
			break
		}
	}
	frames, rest, err := DecodeFrames(c.in)
	c.queue = append(c.queue, frames...)
	c.in = append(c.in[:0], rest...)
	return total, err
}

// DispatchPending delivers queued frames without reading.
func (c *Conn) DispatchPending() (int, error) {
	count := 0
	for len(c.queue) > 0 {
		f := c.queue[0]
		c.queue = c.queue[1:]
		if err := deliver(f, c.listener, c.onDone); err != nil {
			return count, err
		}
		count++
	}
	c.queue = nil
	return count, nil
}

// Dispatch delivers queued frames. With nothing queued it waits once for
// the socket to become readable and reads it; a partial frame then yields
// zero deliveries rather than another wait.
func (c *Conn) Dispatch() (int, error) {
	if len(c.queue) == 0 {
		if err := c.waitReadable(); err != nil {
			return 0, err
		}
		if _, err := c.readAvailable(); err != nil {
			return 0, err
		}
	}
	return c.DispatchPending()
}

func (c *Conn) waitReadable() error {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return pkgerrors.Wrap(err, "wire: poll")
		}
		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			return nil
		}
	}
}

// Close releases the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = unix.Close(c.fd)
	})
	return err
}

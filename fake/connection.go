// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all core interfaces.

package fake

import (
	"sync"

	"github.com/momentics/wldispatch/api"
)

// Connection is a scripted api.Connection that records every call.
type Connection struct {
	mu sync.Mutex

	fd           int
	calls        []string
	queued       int
	flushErrs    []error
	dispatchErrs []error
	readErr      error
	prepareErr   error

	onDispatch func()
}

var _ api.Connection = (*Connection)(nil)

// NewConnection creates a connection reporting fd as its descriptor.
func NewConnection(fd int) *Connection {
	return &Connection{fd: fd}
}

// QueueFlushErrors scripts the results of successive Flush calls; once
// exhausted Flush succeeds.
func (c *Connection) QueueFlushErrors(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushErrs = append(c.flushErrs, errs...)
}

// QueueDispatchErrors scripts the results of successive Dispatch calls.
func (c *Connection) QueueDispatchErrors(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchErrs = append(c.dispatchErrs, errs...)
}

// SetQueued sets how many decoded events are waiting; PrepareRead fails
// with api.ErrQueueNotEmpty until DispatchPending drains them.
func (c *Connection) SetQueued(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued = n
}

// SetReadError makes ReadEvents fail.
func (c *Connection) SetReadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// SetPrepareError makes PrepareRead fail with err.
func (c *Connection) SetPrepareError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareErr = err
}

// OnDispatch installs a hook run inside Dispatch, standing in for protocol
// callbacks.
func (c *Connection) OnDispatch(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDispatch = fn
}

// Calls returns the recorded call names in order.
func (c *Connection) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// Count returns how many times name was called.
func (c *Connection) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	return n
}

func (c *Connection) record(name string) {
	c.calls = append(c.calls, name)
}

// Fd implements api.Connection.
func (c *Connection) Fd() int { return c.fd }

// PrepareRead implements api.Connection.
func (c *Connection) PrepareRead() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("prepare")
	if c.prepareErr != nil {
		return c.prepareErr
	}
	if c.queued > 0 {
		return api.ErrQueueNotEmpty
	}
	return nil
}

// CancelRead implements api.Connection.
func (c *Connection) CancelRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("cancel")
}

// ReadEvents implements api.Connection.
func (c *Connection) ReadEvents() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("read")
	return c.readErr
}

// DispatchPending implements api.Connection.
func (c *Connection) DispatchPending() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("pending")
	n := c.queued
	c.queued = 0
	return n, nil
}

// Dispatch implements api.Connection.
func (c *Connection) Dispatch() (int, error) {
	c.mu.Lock()
	c.record("dispatch")
	var err error
	if len(c.dispatchErrs) > 0 {
		err = c.dispatchErrs[0]
		c.dispatchErrs = c.dispatchErrs[1:]
	}
	hook := c.onDispatch
	c.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if hook != nil {
		hook()
	}
	return 1, nil
}

// Flush implements api.Connection.
func (c *Connection) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("flush")
	if len(c.flushErrs) == 0 {
		return nil
	}
	err := c.flushErrs[0]
	c.flushErrs = c.flushErrs[1:]
	return err
}

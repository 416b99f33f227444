// File: remote/memory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package remote

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/message"
)

// ErrBackpressure is returned when a channel's buffer is full. The message
// is dropped.
var ErrBackpressure = errors.New("remote: send buffer full")

// Memory is a bounded in-process channel.
type Memory struct {
	mu     sync.RWMutex
	ch     chan message.Message
	closed bool
}

var _ api.RemoteChannel = (*Memory)(nil)

// NewMemory creates a channel holding up to size undelivered messages.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Memory{ch: make(chan message.Message, size)}
}

// Send implements api.RemoteChannel without blocking.
func (m *Memory) Send(msg message.Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return api.ErrConnectionClosed
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrBackpressure
	}
}

// C returns the receive side. It is closed by Close.
func (m *Memory) C() <-chan message.Message { return m.ch }

// Close stops accepting messages.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
	return nil
}

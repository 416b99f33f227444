// File: remote/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocketChannel forwards messages over a websocket connection. Send is
// called on the target context and must not block, so frames are handed to
// a single writer goroutine through a bounded queue.

package remote

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/message"
)

const (
	// DefaultQueueSize bounds messages waiting for the writer.
	DefaultQueueSize = 1024
	writeWait        = 5 * time.Second
)

// ChannelConfig tunes a WebSocketChannel.
type ChannelConfig struct {
	QueueSize int
	Header    http.Header
	Logger    api.Logger
}

// WebSocketChannel implements api.RemoteChannel.
type WebSocketChannel struct {
	conn   *websocket.Conn
	send   chan []byte
	logger api.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.Mutex
	closeErr  error
}

var _ api.RemoteChannel = (*WebSocketChannel)(nil)

// Dial opens a websocket to url and starts the writer.
func Dial(ctx context.Context, url string, cfg ChannelConfig) (*WebSocketChannel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, cfg.Header)
	if err != nil {
		e := api.NewError(api.ErrCodeConnection, "remote: dial").WithContext("url", url)
		if resp != nil {
			e.WithContext("status", resp.StatusCode)
		}
		return nil, e.Wrap(err)
	}
	return NewWebSocketChannel(conn, cfg), nil
}

// NewWebSocketChannel wraps an established connection.
func NewWebSocketChannel(conn *websocket.Conn, cfg ChannelConfig) *WebSocketChannel {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := &WebSocketChannel{
		conn:   conn,
		send:   make(chan []byte, size),
		logger: cfg.Logger,
		done:   make(chan struct{}),
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	go c.write()
	go c.read()
	return c
}

// Send encodes m and queues it for the writer.
func (c *WebSocketChannel) Send(m message.Message) error {
	payload, err := message.Encode(m)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return api.ErrConnectionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrBackpressure
	}
}

// Done is closed once the writer has stopped.
func (c *WebSocketChannel) Done() <-chan struct{} { return c.done }

// Err returns why the channel stopped, nil after a clean Close.
func (c *WebSocketChannel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.closeErr
}

// Close drains queued messages, sends a close frame and waits for the
// writer to finish.
func (c *WebSocketChannel) Close() error {
	c.stop()
	<-c.done
	return nil
}

func (c *WebSocketChannel) stop() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *WebSocketChannel) fail(err error) {
	c.errMu.Lock()
	if c.closeErr == nil {
		c.closeErr = err
	}
	c.errMu.Unlock()
}

func (c *WebSocketChannel) write() {
	defer close(c.done)
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.fail(errors.Wrap(err, "remote: write"))
			c.logger.Printf("[remote] write failed, channel closed: %v", err)
			c.stop()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// read consumes control frames so pings and the peer's close are handled.
func (c *WebSocketChannel) read() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.mu.RLock()
			local := c.closed
			c.mu.RUnlock()
			if !local && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.fail(errors.Wrap(err, "remote: read"))
			}
			c.stop()
			return
		}
	}
}

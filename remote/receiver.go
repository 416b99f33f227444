// File: remote/receiver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Receiver is the consumer end of a bridged dispatcher: a fasthttp server
// upgrading every request to a websocket and decoding the envelopes it
// carries.

package remote

import (
	"log"
	"net"
	"sync/atomic"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/message"
)

// Handler receives decoded messages. Calls for one connection are
// sequential and keep the sender's order.
type Handler func(m message.Message)

// Receiver serves websocket producers.
type Receiver struct {
	handler  Handler
	logger   api.Logger
	upgrader websocket.FastHTTPUpgrader
	server   *fasthttp.Server

	received atomic.Int64
	invalid  atomic.Int64
	clients  atomic.Int64
}

// NewReceiver creates a receiver delivering to h.
func NewReceiver(h Handler, logger api.Logger) *Receiver {
	if logger == nil {
		logger = log.Default()
	}
	r := &Receiver{
		handler: h,
		logger:  logger,
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: func(*fasthttp.RequestCtx) bool { return true },
		},
	}
	r.server = &fasthttp.Server{
		Handler: r.ServeFastHTTP,
		Name:    "wlsink",
	}
	return r
}

// ServeFastHTTP upgrades the request and reads until the producer leaves.
func (r *Receiver) ServeFastHTTP(ctx *fasthttp.RequestCtx) {
	err := r.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		r.clients.Add(1)
		defer r.clients.Add(-1)
		r.consume(conn)
	})
	if err != nil {
		r.logger.Printf("[remote] upgrade from %s failed: %v", ctx.RemoteAddr(), err)
	}
}

func (r *Receiver) consume(conn *websocket.Conn) {
	defer conn.Close()
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Printf("[remote] read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		m, err := message.Decode(payload)
		if err != nil {
			r.invalid.Add(1)
			r.logger.Printf("[remote] dropping invalid message: %v", err)
			continue
		}
		r.received.Add(1)
		if r.handler != nil {
			r.handler(m)
		}
	}
}

// Serve accepts producers on ln until Shutdown.
func (r *Receiver) Serve(ln net.Listener) error {
	if err := r.server.Serve(ln); err != nil {
		return errors.Wrap(err, "remote: serve")
	}
	return nil
}

// ListenAndServe listens on addr and serves.
func (r *Receiver) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "remote: listen %s", addr)
	}
	return r.Serve(ln)
}

// Shutdown stops the server and waits for open connections to close.
func (r *Receiver) Shutdown() error {
	return r.server.Shutdown()
}

// Stats returns receive counters.
func (r *Receiver) Stats() map[string]int64 {
	return map[string]int64{
		"received": r.received.Load(),
		"invalid":  r.invalid.Load(),
		"clients":  r.clients.Load(),
	}
}

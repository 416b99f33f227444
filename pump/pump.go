// File: pump/pump.go
// Package pump drives the flush/read/dispatch cycle of a display-protocol
// connection against a readiness multiplexer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every iteration keeps the protocol's ordering: dispatch what is already
// queued, flush outgoing requests, block for readiness, then react. Any
// failure other than write backpressure ends the loop for good; nothing here
// reconnects.

package pump

import (
	"errors"
	"log"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/reactor"
)

// Poller is the part of reactor.Multiplexer the pump needs.
type Poller interface {
	Modify(fd int, in reactor.Interest) error
	Wait(ready []reactor.Ready, timeoutMs int) (int, error)
	Wake() error
}

// Metrics receives pump counters.
type Metrics interface {
	Add(key string, delta int64)
	Set(key string, value any)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, int64) {}
func (nopMetrics) Set(string, any)   {}

const (
	baseInterest  = reactor.Read | reactor.Error
	writeInterest = reactor.Read | reactor.Write | reactor.Error
)

// Pump runs the loop. Run, FlushRound and the idle hook execute on the
// dispatch thread only; Stop may be called from anywhere.
type Pump struct {
	conn     api.Connection
	poller   Poller
	fd       int
	ready    []reactor.Ready
	interest reactor.Interest
	idle     func()
	logger   api.Logger
	metrics  Metrics
	verbose  bool
	stop     atomic.Bool
}

// Option customizes a Pump.
type Option func(*Pump)

// WithBatch sets how many ready events one Wait may return.
func WithBatch(n int) Option {
	return func(p *Pump) {
		if n > 0 {
			p.ready = make([]reactor.Ready, n)
		}
	}
}

// WithIdleHook runs fn at the top of every iteration, before queued events
// are dispatched. The dispatcher uses it to service tasks posted to the
// dispatch thread while the loop owns it.
func WithIdleHook(fn func()) Option {
	return func(p *Pump) { p.idle = fn }
}

// WithLogger overrides the default logger.
func WithLogger(logger api.Logger) Option {
	return func(p *Pump) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(p *Pump) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithVerbose enables per-iteration tracing.
func WithVerbose(on bool) Option {
	return func(p *Pump) { p.verbose = on }
}

// New creates a pump for conn. The connection's descriptor must already be
// registered with poller for read and error interest. A nil poller yields a
// pump that only supports FlushRound.
func New(conn api.Connection, poller Poller, opts ...Option) *Pump {
	p := &Pump{
		conn:     conn,
		poller:   poller,
		fd:       conn.Fd(),
		ready:    make([]reactor.Ready, reactor.DefaultBatch),
		interest: baseInterest,
		logger:   log.Default(),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interest returns the interest currently registered for the socket.
func (p *Pump) Interest() reactor.Interest { return p.interest }

// Stop asks the loop to exit at its next check point and wakes a blocked
// Wait. An in-flight Dispatch is not interrupted.
func (p *Pump) Stop() {
	if p.stop.CompareAndSwap(false, true) && p.poller != nil {
		if err := p.poller.Wake(); err != nil {
			p.logger.Printf("[pump] wake failed: %v", err)
		}
	}
}

// Stopped reports whether Stop was called.
func (p *Pump) Stopped() bool { return p.stop.Load() }

// Run executes the loop until Stop, hangup or a connection-fatal error. It
// returns nil on a requested stop and the terminal cause otherwise.
func (p *Pump) Run() error {
	if p.poller == nil {
		return api.ErrNotSupported
	}
	for {
		if p.idle != nil {
			p.idle()
		}
		n, err := p.conn.DispatchPending()
		if err != nil {
			return p.exit(pkgerrors.Wrap(err, "dispatch pending"))
		}
		p.metrics.Add("pump.dispatched", int64(n))

		if p.stop.Load() {
			return p.exit(nil)
		}

		if err := p.conn.Flush(); err != nil {
			if !api.IsWouldBlock(err) {
				return p.exit(pkgerrors.Wrap(err, "flush"))
			}
			p.metrics.Add("pump.flush_would_block", 1)
			if err := p.setInterest(writeInterest); err != nil {
				return p.exit(err)
			}
		}

		count, err := p.poller.Wait(p.ready, -1)
		if err != nil {
			return p.exit(pkgerrors.Wrap(err, "wait"))
		}
		p.metrics.Add("pump.iterations", 1)
		if p.verbose {
			p.logger.Printf("[pump] %d ready, interest=%s", count, p.interest)
		}

		for i := 0; i < count; i++ {
			if err := p.handle(p.ready[i].Events); err != nil {
				return p.exit(err)
			}
		}
	}
}

// handle reacts to one readiness report.
func (p *Pump) handle(ev reactor.Interest) error {
	if ev&reactor.Error != 0 {
		return api.ErrHangup
	}
	if ev&reactor.Read != 0 {
		n, err := p.conn.Dispatch()
		if err != nil {
			return pkgerrors.Wrap(err, "dispatch")
		}
		p.metrics.Add("pump.dispatched", int64(n))
	}
	if ev&reactor.Write != 0 {
		err := p.conn.Flush()
		switch {
		case err == nil:
			return p.setInterest(baseInterest)
		case api.IsWouldBlock(err):
			p.metrics.Add("pump.flush_would_block", 1)
		default:
			return pkgerrors.Wrap(err, "flush")
		}
	}
	return nil
}

// setInterest updates the registration when it changes. A failed update is
// connection-fatal: polling with a stale mask can stall writes forever.
func (p *Pump) setInterest(in reactor.Interest) error {
	if p.interest == in {
		return nil
	}
	if err := p.poller.Modify(p.fd, in); err != nil {
		return pkgerrors.Wrapf(err, "modify interest to %s", in)
	}
	p.interest = in
	return nil
}

func (p *Pump) exit(err error) error {
	if err == nil {
		p.metrics.Set("pump.exit", "stopped")
		return nil
	}
	p.metrics.Set("pump.exit", err.Error())
	p.logger.Printf("[pump] loop terminated: %v", err)
	return err
}

// FlushRound performs one synchronisation cycle outside the loop: drain the
// queue until a read can be prepared, flush, read what is available and
// dispatch it.
func (p *Pump) FlushRound() error {
	for {
		err := p.conn.PrepareRead()
		if err == nil {
			break
		}
		if !errors.Is(err, api.ErrQueueNotEmpty) {
			return pkgerrors.Wrap(err, "prepare read")
		}
		if _, err := p.conn.DispatchPending(); err != nil {
			return pkgerrors.Wrap(err, "dispatch pending")
		}
	}
	if err := p.conn.Flush(); err != nil && !api.IsWouldBlock(err) {
		p.conn.CancelRead()
		return pkgerrors.Wrap(err, "flush")
	}
	if err := p.conn.ReadEvents(); err != nil {
		return pkgerrors.Wrap(err, "read events")
	}
	if _, err := p.conn.DispatchPending(); err != nil {
		return pkgerrors.Wrap(err, "dispatch pending")
	}
	return nil
}

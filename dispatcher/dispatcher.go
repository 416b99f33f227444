// File: dispatcher/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher owns the dispatch thread, the readiness multiplexer and the
// pump, and exposes the notifier surface fed by protocol callbacks.

package dispatcher

import (
	"log"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/internal/concurrency"
	"github.com/momentics/wldispatch/keymap"
	"github.com/momentics/wldispatch/pump"
	"github.com/momentics/wldispatch/reactor"
)

// BackgroundPriority is the nice increment applied to the dispatch thread.
const BackgroundPriority = 10

// Metrics receives dispatcher counters; *control.MetricsRegistry fits.
type Metrics = pump.Metrics

type nopMetrics struct{}

func (nopMetrics) Add(string, int64) {}
func (nopMetrics) Set(string, any)   {}

type nopSink struct{}

func (nopSink) DispatchEvent(event.Event) {}

// Options configures a Dispatcher. Target is required; Remote is required
// in bridged mode.
type Options struct {
	// Mode selects the delivery strategy; ModeAuto chooses bridged when
	// Connection is set and has a socket.
	Mode Mode

	// Connection is the protocol connection. Once polling starts it is only
	// touched from the dispatch thread.
	Connection api.Connection

	// Multiplexer overrides the epoll instance created in bridged mode. The
	// dispatcher takes ownership and closes it.
	Multiplexer reactor.Multiplexer

	// Target receives every routed delivery.
	Target api.TaskRunner

	Remote   api.RemoteChannel
	Sink     api.EventSink
	Observer api.WindowObserver
	Keys     api.KeyTranslator

	// WaitBatch bounds ready events per wait; defaults to reactor.DefaultBatch.
	WaitBatch int

	// Priority is the dispatch thread nice value; zero selects
	// BackgroundPriority, a negative value leaves priority untouched.
	Priority int

	// CPUs pins the dispatch thread when non-empty.
	CPUs []int

	Logger  api.Logger
	Metrics Metrics
	Verbose bool
}

// Dispatcher routes input notifications onto a target context.
type Dispatcher struct {
	mode   Mode
	router router
	state  atomic.Int32

	conn   api.Connection
	mux    reactor.Multiplexer
	pump   *pump.Pump
	thread *concurrency.Looper

	remote api.RemoteChannel
	sink   api.EventSink
	keys   api.KeyTranslator

	// mu guards the posting latch, the target reference and the observer.
	mu       sync.RWMutex
	ignore   bool
	target   api.TaskRunner
	observer api.WindowObserver

	errMu    sync.Mutex
	err      error
	done     chan struct{}
	doneOnce sync.Once
	stopOnce sync.Once

	logger  api.Logger
	metrics Metrics
}

var _ api.InputListener = (*Dispatcher)(nil)

// New builds a dispatcher and moves it to Started. In bridged mode the
// socket is registered for read and error readiness; if the multiplexer
// cannot be created or registered the dispatcher degrades to direct mode.
func New(opts Options) (*Dispatcher, error) {
	if opts.Target == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "dispatcher: target context required").Wrap(api.ErrInvalidArgument)
	}
	d := &Dispatcher{
		conn:     opts.Connection,
		remote:   opts.Remote,
		sink:     opts.Sink,
		keys:     opts.Keys,
		target:   opts.Target,
		observer: opts.Observer,
		done:     make(chan struct{}),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if d.logger == nil {
		d.logger = log.Default()
	}
	if d.metrics == nil {
		d.metrics = nopMetrics{}
	}
	if d.sink == nil {
		d.sink = nopSink{}
	}
	if d.keys == nil {
		d.keys = keymap.Translator{}
	}

	mode := opts.Mode
	hasSocket := d.conn != nil && d.conn.Fd() >= 0
	if mode == ModeAuto {
		mode = ModeDirect
		if hasSocket {
			mode = ModeBridged
		}
	}
	if mode == ModeBridged {
		if !hasSocket {
			return nil, api.NewError(api.ErrCodeInvalidArgument, "dispatcher: bridged mode needs a connection socket").Wrap(api.ErrInvalidArgument)
		}
		if d.remote == nil {
			return nil, api.NewError(api.ErrCodeInvalidArgument, "dispatcher: bridged mode needs a remote channel").Wrap(api.ErrInvalidArgument)
		}
		mux, err := d.openMultiplexer(opts)
		if err != nil {
			d.logger.Printf("[dispatcher] multiplexer unavailable, falling back to direct mode: %v", err)
			mode = ModeDirect
		} else {
			d.mux = mux
		}
	}
	d.mode = mode

	var poller pump.Poller
	if d.mux != nil {
		poller = d.mux
	}
	if d.conn != nil {
		d.pump = pump.New(d.conn, poller,
			pump.WithBatch(opts.WaitBatch),
			pump.WithIdleHook(d.runAdmin),
			pump.WithLogger(d.logger),
			pump.WithMetrics(d.metrics),
			pump.WithVerbose(opts.Verbose),
		)
	}

	switch mode {
	case ModeBridged:
		d.router = bridgedRouter{d: d}
	default:
		d.router = directRouter{d: d}
	}

	if err := d.startThread(opts); err != nil {
		d.closeMultiplexer()
		return nil, err
	}
	if obs, ok := opts.Target.(api.DestructionObservable); ok {
		obs.AddDestructionObserver(d.TargetDestroyed)
	}
	d.state.Store(int32(Started))
	return d, nil
}

func (d *Dispatcher) openMultiplexer(opts Options) (reactor.Multiplexer, error) {
	mux := opts.Multiplexer
	if mux == nil {
		ep, err := reactor.New(opts.WaitBatch)
		if err != nil {
			return nil, err
		}
		mux = ep
	}
	if err := mux.Register(d.conn.Fd(), reactor.Read|reactor.Error); err != nil {
		mux.Close()
		return nil, pkgerrors.Wrapf(err, "register fd %d", d.conn.Fd())
	}
	return mux, nil
}

// startThread launches the dispatch thread when there is a connection for
// it to own.
func (d *Dispatcher) startThread(opts Options) error {
	if d.conn == nil {
		return nil
	}
	priority := opts.Priority
	if priority == 0 {
		priority = BackgroundPriority
	}
	lopts := []concurrency.LooperOption{concurrency.WithLogger(d.logger), concurrency.WithLockedThread()}
	if priority > 0 {
		lopts = append(lopts, concurrency.WithPriority(priority))
	}
	if len(opts.CPUs) > 0 {
		lopts = append(lopts, concurrency.WithCPUs(opts.CPUs...))
	}
	d.thread = concurrency.NewLooper("wl-dispatch", lopts...)
	if d.mux != nil {
		mux := d.mux
		logger := d.logger
		d.thread.SetWaker(func() {
			if err := mux.Wake(); err != nil {
				logger.Printf("[dispatcher] wake: %v", err)
			}
		})
	}
	if err := d.thread.Start(); err != nil {
		return pkgerrors.Wrap(err, "dispatcher: start thread")
	}
	return nil
}

// Mode returns the delivery mode chosen at construction.
func (d *Dispatcher) Mode() Mode { return d.mode }

// State returns the current lifecycle state.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Running reports whether the pump loop has started and no teardown began.
func (d *Dispatcher) Running() bool { return d.State() == Running }

// Done is closed when the pump loop exits or the dispatcher is torn down.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Err returns the connection-fatal cause that ended the pump loop, if any.
func (d *Dispatcher) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

// SetObserver installs the window-lifecycle observer used in direct mode.
func (d *Dispatcher) SetObserver(o api.WindowObserver) {
	d.mu.Lock()
	d.observer = o
	d.mu.Unlock()
}

// Observer returns the current window-lifecycle observer.
func (d *Dispatcher) Observer() api.WindowObserver {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.observer
}

// MotionNotify routes a pointer motion.
func (d *Dispatcher) MotionNotify(x, y float32) { d.router.MotionNotify(x, y) }

// ButtonNotify routes a pointer button; state 1 is a press.
func (d *Dispatcher) ButtonNotify(handle uint32, state, flags int32, x, y float32) {
	d.router.ButtonNotify(handle, state, flags, x, y)
}

// AxisNotify routes a scroll.
func (d *Dispatcher) AxisNotify(x, y, xoffset, yoffset float32) {
	d.router.AxisNotify(x, y, xoffset, yoffset)
}

// PointerEnter routes the pointer entering a surface.
func (d *Dispatcher) PointerEnter(handle uint32, x, y float32) { d.router.PointerEnter(handle, x, y) }

// PointerLeave routes the pointer leaving a surface.
func (d *Dispatcher) PointerLeave(handle uint32, x, y float32) { d.router.PointerLeave(handle, x, y) }

// KeyNotify routes a key; any non-zero state is a press.
func (d *Dispatcher) KeyNotify(state, code, modifiers uint32) {
	d.router.KeyNotify(state, code, modifiers)
}

// OutputSizeChanged routes an output mode change.
func (d *Dispatcher) OutputSizeChanged(width, height uint32) {
	d.router.OutputSizeChanged(width, height)
}

// WindowResized routes a surface configure.
func (d *Dispatcher) WindowResized(handle, width, height uint32) {
	d.router.WindowResized(handle, width, height)
}

// DispatchEvent posts an already built event to the local sink.
func (d *Dispatcher) DispatchEvent(ev event.Event) bool {
	if ev == nil {
		return false
	}
	return d.post(localDelivery{d: d, ev: ev})
}

// PostTask queues an administrative task on the dispatch thread. Poll is
// only meaningful in bridged mode and is a no-op once the loop runs.
//
// The read lock is held through the enqueue and its wakeup, so teardown
// cannot release the multiplexer between the two.
func (d *Dispatcher) PostTask(t AdminTask) bool {
	if d.thread == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ignore {
		return false
	}
	switch t {
	case Flush:
		return d.thread.Post(d.handleFlush)
	case Poll:
		if d.mode != ModeBridged || d.State() != Started {
			return false
		}
		return d.thread.Post(d.runLoop)
	}
	return false
}

// post is the single guarded enqueue primitive. The read lock is held
// across the enqueue so a concurrent teardown either sees the task queued
// before the latch or the post sees the latch.
func (d *Dispatcher) post(t api.Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ignore || d.target == nil || !d.target.PostTask(t) {
		d.dropped()
		return false
	}
	d.metrics.Add("dispatcher.posted", 1)
	return true
}

func (d *Dispatcher) dropped() {
	d.metrics.Add("dispatcher.dropped", 1)
}

// live reports whether deliveries may still execute.
func (d *Dispatcher) live() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.ignore
}

// runLoop is the Poll task. It holds the dispatch thread until the pump
// exits.
func (d *Dispatcher) runLoop() {
	if !d.state.CompareAndSwap(int32(Started), int32(Running)) {
		return
	}
	d.metrics.Add("dispatcher.poll_loops", 1)
	d.logger.Printf("[dispatcher] polling fd=%d", d.conn.Fd())
	err := d.pump.Run()
	if err != nil {
		d.errMu.Lock()
		d.err = err
		d.errMu.Unlock()
		d.logger.Printf("[dispatcher] connection lost, dispatcher idle: %v", err)
	}
	d.markDone()
}

// runAdmin services dispatch-thread tasks between pump iterations.
func (d *Dispatcher) runAdmin() {
	d.thread.RunPending()
}

func (d *Dispatcher) handleFlush() {
	if d.pump == nil || !d.live() {
		return
	}
	if err := d.pump.FlushRound(); err != nil {
		d.logger.Printf("[dispatcher] flush: %v", err)
	}
}

func (d *Dispatcher) markDone() {
	d.doneOnce.Do(func() { close(d.done) })
}

// TargetDestroyed is the lifecycle callback for an externally torn down
// target context. It leaves the dispatcher safe to Close.
func (d *Dispatcher) TargetDestroyed() {
	d.logger.Printf("[dispatcher] target context destroyed")
	d.shutdown()
}

// Close stops the pump, joins the dispatch thread and releases the
// multiplexer. Safe to call more than once.
func (d *Dispatcher) Close() error {
	d.shutdown()
	return nil
}

// Shutdown implements api.GracefulShutdown.
func (d *Dispatcher) Shutdown() error { return d.Close() }

func (d *Dispatcher) shutdown() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.ignore = true
		d.target = nil
		d.mu.Unlock()
		d.state.Store(int32(Stopping))

		if d.pump != nil {
			d.pump.Stop()
		}
		if d.thread != nil {
			d.thread.Stop()
		}
		d.closeMultiplexer()
		d.markDone()
		d.state.Store(int32(Terminated))
	})
}

func (d *Dispatcher) closeMultiplexer() {
	if d.mux == nil {
		return
	}
	if err := d.mux.Close(); err != nil {
		d.logger.Printf("[dispatcher] close multiplexer: %v", err)
	}
}

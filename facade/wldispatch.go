// File: facade/wldispatch.go
// Unified facade for wldispatch.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WLDispatch assembles the pieces of a running dispatcher from one Config:
// the target execution context, the display connection, the remote channel,
// the dispatcher itself and the control surface that observes them.

package facade

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/wldispatch/adapters"
	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/dispatcher"
	"github.com/momentics/wldispatch/internal/concurrency"
	"github.com/momentics/wldispatch/remote"
	"github.com/momentics/wldispatch/wire"
)

// listenerSetter is implemented by connections that deliver decoded input
// to an api.InputListener, such as *wire.Conn.
type listenerSetter interface {
	SetListener(l api.InputListener)
}

// Option injects a collaborator instead of the one Config would build.
type Option func(*options)

type options struct {
	conn     api.Connection
	remote   api.RemoteChannel
	sink     api.EventSink
	observer api.WindowObserver
	keys     api.KeyTranslator
	logger   api.Logger
}

// WithConnection supplies the display connection; SocketPath is ignored.
func WithConnection(c api.Connection) Option { return func(o *options) { o.conn = c } }

// WithRemote supplies the remote channel; RemoteURL is ignored.
func WithRemote(r api.RemoteChannel) Option { return func(o *options) { o.remote = r } }

// WithSink sets the direct-mode event sink.
func WithSink(s api.EventSink) Option { return func(o *options) { o.sink = s } }

// WithObserver sets the direct-mode window observer.
func WithObserver(w api.WindowObserver) Option { return func(o *options) { o.observer = w } }

// WithKeyTranslator overrides keysym translation.
func WithKeyTranslator(k api.KeyTranslator) Option { return func(o *options) { o.keys = k } }

// WithLogger overrides the default logger.
func WithLogger(l api.Logger) Option { return func(o *options) { o.logger = l } }

// WLDispatch is the main facade type.
type WLDispatch struct {
	config  *Config
	opts    options
	mode    dispatcher.Mode
	control *adapters.ControlAdapter
	target  *concurrency.Looper
	logger  api.Logger

	conn    api.Connection
	remote  api.RemoteChannel
	closers []io.Closer

	mu         sync.Mutex
	dispatcher *dispatcher.Dispatcher
	started    bool
	stopped    bool
	tickerStop chan struct{}
	tickerDone chan struct{}
}

var _ api.GracefulShutdown = (*WLDispatch)(nil)

// New validates cfg and opens the connection and the remote channel. The
// dispatcher itself is created by Start.
func New(cfg *Config, opts ...Option) (*WLDispatch, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := dispatcher.ParseMode(cfg.Mode)

	w := &WLDispatch{
		config:  cfg,
		mode:    mode,
		control: adapters.NewControlAdapter(),
	}
	for _, opt := range opts {
		opt(&w.opts)
	}
	w.logger = w.opts.logger
	if w.logger == nil {
		w.logger = log.Default()
	}
	w.target = concurrency.NewLooper(cfg.TargetName, concurrency.WithLogger(w.logger))

	if err := w.openConnection(); err != nil {
		return nil, err
	}
	if err := w.openRemote(); err != nil {
		w.closeAll()
		return nil, err
	}

	w.control.SetConfig(cfg.snapshot())
	w.control.OnReload(func(cfg map[string]any) {
		if w.config.Verbose {
			w.logger.Printf("[facade] configuration updated: %v", cfg)
		}
	})
	return w, nil
}

func (w *WLDispatch) openConnection() error {
	if w.opts.conn != nil {
		w.conn = w.opts.conn
		return nil
	}
	if w.config.SocketPath == "" {
		if w.mode == dispatcher.ModeBridged {
			return errors.Wrap(api.ErrInvalidArgument, "bridged mode needs a socket path")
		}
		return nil
	}
	conn, err := wire.Dial(w.config.SocketPath)
	if err != nil {
		return err
	}
	w.conn = conn
	w.closers = append(w.closers, conn)
	return nil
}

// openRemote dials the remote consumer when the dispatcher may run bridged.
func (w *WLDispatch) openRemote() error {
	if w.opts.remote != nil {
		w.remote = w.opts.remote
		return nil
	}
	if w.mode == dispatcher.ModeDirect || w.conn == nil {
		return nil
	}
	if w.config.RemoteURL == "" {
		if w.mode == dispatcher.ModeBridged {
			return errors.Wrap(api.ErrInvalidArgument, "bridged mode needs a remote URL")
		}
		// Auto without a consumer degrades to direct.
		w.mode = dispatcher.ModeDirect
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.config.DialTimeout)
	defer cancel()
	ch, err := remote.Dial(ctx, w.config.RemoteURL, remote.ChannelConfig{
		QueueSize: w.config.QueueSize,
		Logger:    w.logger,
	})
	if err != nil {
		return err
	}
	w.remote = ch
	w.closers = append(w.closers, ch)
	return nil
}

// Start launches the target context and the dispatcher, and begins polling
// in bridged mode. Subsequent calls have no effect.
func (w *WLDispatch) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return api.ErrClosed
	}
	if w.started {
		return nil
	}
	if err := w.target.Start(); err != nil {
		return errors.Wrap(err, "facade: start target")
	}

	dopts := dispatcher.Options{
		Mode:       w.mode,
		Connection: w.conn,
		Target:     w.target,
		Remote:     w.remote,
		Sink:       w.opts.sink,
		Observer:   w.opts.observer,
		Keys:       w.opts.keys,
		WaitBatch:  w.config.WaitBatch,
		Priority:   w.config.ThreadPriority,
		CPUs:       w.config.CPUs,
		Logger:     w.logger,
		Verbose:    w.config.Verbose,
	}
	if w.config.ThreadPriority == 0 {
		dopts.Priority = -1
	}
	if w.config.EnableMetrics {
		dopts.Metrics = w.control.Metrics()
	}
	d, err := dispatcher.New(dopts)
	if err != nil {
		w.target.Stop()
		return err
	}
	w.dispatcher = d
	if ls, ok := w.conn.(listenerSetter); ok {
		ls.SetListener(d)
	}
	if w.config.EnableDebug {
		w.registerProbes()
	}

	switch d.Mode() {
	case dispatcher.ModeBridged:
		if !d.PostTask(dispatcher.Poll) {
			w.logger.Printf("[facade] poll task rejected")
		}
	case dispatcher.ModeDirect:
		if w.conn != nil && w.config.FlushInterval > 0 {
			w.startFlushTicker(d, w.config.FlushInterval)
		}
	}
	w.logger.Printf("[facade] dispatcher started in %s mode", d.Mode())
	w.started = true
	return nil
}

func (w *WLDispatch) registerProbes() {
	d := w.dispatcher
	w.control.RegisterDebugProbe("dispatcher.state", func() any { return d.State().String() })
	w.control.RegisterDebugProbe("dispatcher.mode", func() any { return d.Mode().String() })
	w.control.RegisterDebugProbe("target.stats", func() any { return w.target.Stats() })
}

// startFlushTicker drives a direct-mode connection by posting Flush tasks.
func (w *WLDispatch) startFlushTicker(d *dispatcher.Dispatcher, every time.Duration) {
	w.tickerStop = make(chan struct{})
	w.tickerDone = make(chan struct{})
	go func() {
		defer close(w.tickerDone)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-w.tickerStop:
				return
			case <-d.Done():
				return
			case <-t.C:
				d.PostTask(dispatcher.Flush)
			}
		}
	}()
}

// Stop tears down in dependency order: dispatcher, target context, then
// the connection and the remote channel. Calling Stop on a stopped facade
// is a no-op.
func (w *WLDispatch) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.tickerStop != nil {
		close(w.tickerStop)
		<-w.tickerDone
	}
	if w.dispatcher != nil {
		w.dispatcher.Close()
	}
	w.target.Stop()
	return w.closeAll()
}

func (w *WLDispatch) closeAll() error {
	var first error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	w.closers = nil
	return first
}

// Shutdown implements api.GracefulShutdown by delegating to Stop.
func (w *WLDispatch) Shutdown() error {
	return w.Stop()
}

// Dispatcher returns the running dispatcher, nil before Start.
func (w *WLDispatch) Dispatcher() *dispatcher.Dispatcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dispatcher
}

// Done is closed when the dispatcher's pump exits or the facade stops. It
// returns nil before Start.
func (w *WLDispatch) Done() <-chan struct{} {
	d := w.Dispatcher()
	if d == nil {
		return nil
	}
	return d.Done()
}

// Target returns the execution context receiving deliveries.
func (w *WLDispatch) Target() api.TaskRunner { return w.target }

// Mode returns the mode the dispatcher will be built with.
func (w *WLDispatch) Mode() dispatcher.Mode { return w.mode }

// GetControl returns the Control interface for config and metrics.
func (w *WLDispatch) GetControl() api.Control { return w.control }

// GetDebugAPI returns the probe registry.
func (w *WLDispatch) GetDebugAPI() api.Debug { return w.control.Debug() }

// RegisterReloadHook registers fn for configuration updates made through
// the control adapter.
func (w *WLDispatch) RegisterReloadHook(fn func(map[string]any)) {
	w.control.OnReload(fn)
}

// UpdateConfig merges runtime values into the effective configuration.
func (w *WLDispatch) UpdateConfig(values map[string]any) error {
	return w.control.SetConfig(values)
}

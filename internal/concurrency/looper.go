// File: internal/concurrency/looper.go
// Package concurrency implements a single-goroutine task looper.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Looper owns one goroutine (optionally locked to its OS thread) and runs
// posted tasks strictly in FIFO order. It backs both the dispatch thread and
// the target execution context that receives routed deliveries.

package concurrency

import (
	"errors"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/wldispatch/api"
)

// ErrLooperStarted is returned by Start on a looper that already ran.
var ErrLooperStarted = errors.New("looper already started")

const (
	looperIdle int32 = iota
	looperRunning
	looperQuitting
	looperStopped
)

// Looper runs tasks on a dedicated goroutine.
type Looper struct {
	name       string
	lockThread bool
	priority   int
	cpus       []int
	logger     api.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	tasks     *queue.Queue // api.Task
	waker     func()
	observers []func()
	state     int32

	done     chan struct{}
	executed int64
	panics   int64
}

var (
	_ api.TaskRunner            = (*Looper)(nil)
	_ api.DestructionObservable = (*Looper)(nil)
)

// LooperOption customizes a Looper.
type LooperOption func(*Looper)

// WithLockedThread pins the looper goroutine to its OS thread for its whole
// lifetime.
func WithLockedThread() LooperOption {
	return func(l *Looper) { l.lockThread = true }
}

// WithPriority requests a nice increment for the looper thread. Implies
// WithLockedThread, since priority is a per-thread attribute.
func WithPriority(nice int) LooperOption {
	return func(l *Looper) {
		l.priority = nice
		l.lockThread = true
	}
}

// WithCPUs pins the looper thread to the given CPUs. Implies
// WithLockedThread.
func WithCPUs(cpus ...int) LooperOption {
	return func(l *Looper) {
		l.cpus = append([]int(nil), cpus...)
		if len(cpus) > 0 {
			l.lockThread = true
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger api.Logger) LooperOption {
	return func(l *Looper) { l.logger = logger }
}

// NewLooper creates a stopped looper.
func NewLooper(name string, opts ...LooperOption) *Looper {
	l := &Looper{
		name:   name,
		tasks:  queue.New(),
		done:   make(chan struct{}),
		logger: log.Default(),
	}
	l.cond = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the looper name.
func (l *Looper) Name() string { return l.name }

// Start launches the goroutine and returns once it accepts tasks.
func (l *Looper) Start() error {
	l.mu.Lock()
	if l.state != looperIdle {
		l.mu.Unlock()
		return ErrLooperStarted
	}
	l.state = looperRunning
	l.mu.Unlock()

	started := make(chan struct{})
	go l.run(started)
	<-started
	return nil
}

// IsRunning reports whether the looper accepts tasks.
func (l *Looper) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == looperRunning
}

// SetWaker installs a hook invoked after every successful post, used to
// interrupt a task that blocks outside the looper (the pump's Wait).
func (l *Looper) SetWaker(fn func()) {
	l.mu.Lock()
	l.waker = fn
	l.mu.Unlock()
}

// PostTask queues t. It never blocks and returns false once the looper is
// not running.
func (l *Looper) PostTask(t api.Task) bool {
	if t == nil {
		return false
	}
	l.mu.Lock()
	if l.state != looperRunning {
		l.mu.Unlock()
		return false
	}
	l.tasks.Add(t)
	waker := l.waker
	l.cond.Signal()
	l.mu.Unlock()
	if waker != nil {
		waker()
	}
	return true
}

// Post is a convenience wrapper around PostTask for plain functions.
func (l *Looper) Post(fn func()) bool {
	return l.PostTask(api.TaskFunc(fn))
}

// AddDestructionObserver registers fn to run when Stop begins, before the
// queue is discarded. Observers run on the goroutine calling Stop.
func (l *Looper) AddDestructionObserver(fn func()) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

// RunPending executes queued tasks inline. It must only be called from a
// task currently running on this looper.
func (l *Looper) RunPending() int {
	count := 0
	for {
		t, ok := l.next(false)
		if !ok {
			return count
		}
		l.runTask(t)
		count++
	}
}

// Stop notifies destruction observers, waits for the goroutine to exit and
// discards tasks that never ran. Must not be called from the looper itself.
func (l *Looper) Stop() {
	l.mu.Lock()
	switch l.state {
	case looperIdle:
		l.state = looperStopped
		close(l.done)
		l.mu.Unlock()
		return
	case looperRunning:
	default:
		l.mu.Unlock()
		<-l.done
		return
	}
	l.state = looperQuitting
	observers := l.observers
	l.observers = nil
	l.cond.Broadcast()
	l.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
	<-l.done

	l.mu.Lock()
	for l.tasks.Length() > 0 {
		l.tasks.Remove()
	}
	l.state = looperStopped
	l.mu.Unlock()
}

// Stats returns basic looper counters.
func (l *Looper) Stats() map[string]int64 {
	return map[string]int64{
		"executed": atomic.LoadInt64(&l.executed),
		"panics":   atomic.LoadInt64(&l.panics),
		"pending":  int64(l.Pending()),
	}
}

func (l *Looper) run(started chan<- struct{}) {
	defer close(l.done)
	if l.lockThread {
		runtime.LockOSThread()
		// A thread with altered priority or affinity is not handed back to
		// the scheduler; exiting while locked retires it.
		if l.priority == 0 && len(l.cpus) == 0 {
			defer runtime.UnlockOSThread()
		}
	}
	if l.priority != 0 {
		if err := SetThreadPriority(l.priority); err != nil {
			l.logger.Printf("[looper %s] priority %d not applied: %v", l.name, l.priority, err)
		}
	}
	if len(l.cpus) > 0 {
		if err := PinThread(l.cpus); err != nil {
			l.logger.Printf("[looper %s] affinity %v not applied: %v", l.name, l.cpus, err)
		}
	}
	close(started)
	for {
		t, ok := l.next(true)
		if !ok {
			return
		}
		l.runTask(t)
	}
}

// next dequeues one task; with wait it blocks until a task arrives or the
// looper quits.
func (l *Looper) next(wait bool) (api.Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for wait && l.tasks.Length() == 0 && l.state == looperRunning {
		l.cond.Wait()
	}
	if l.state != looperRunning || l.tasks.Length() == 0 {
		return nil, false
	}
	return l.tasks.Remove().(api.Task), true
}

// runTask executes t, recovering from panics to keep the looper alive.
func (l *Looper) runTask(t api.Task) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&l.panics, 1)
			l.logger.Printf("[looper %s] task panic: %v", l.name, r)
		}
		atomic.AddInt64(&l.executed, 1)
	}()
	t.Run()
}

// Package fake
// Author: momentics <momentics@gmail.com>
//
// Recording sink, observer and remote channel.

package fake

import (
	"sync"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/message"
)

// Entry is one recorded delivery.
type Entry struct {
	Kind    string // "event", "message", "enter", "leave", "focused", "resized"
	Event   event.Event
	Message message.Message
	Handle  uint32
	Width   uint32
	Height  uint32
}

// Recorder implements api.EventSink, api.WindowObserver and
// api.RemoteChannel, keeping one ordered journal across all three.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	sendErr error
}

var (
	_ api.EventSink      = (*Recorder)(nil)
	_ api.WindowObserver = (*Recorder)(nil)
	_ api.RemoteChannel  = (*Recorder)(nil)
)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetSendError makes Send fail after recording.
func (r *Recorder) SetSendError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendErr = err
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// DispatchEvent implements api.EventSink.
func (r *Recorder) DispatchEvent(ev event.Event) { r.add(Entry{Kind: "event", Event: ev}) }

// OnWindowEnter implements api.WindowObserver.
func (r *Recorder) OnWindowEnter(h uint32) { r.add(Entry{Kind: "enter", Handle: h}) }

// OnWindowLeave implements api.WindowObserver.
func (r *Recorder) OnWindowLeave(h uint32) { r.add(Entry{Kind: "leave", Handle: h}) }

// OnWindowFocused implements api.WindowObserver.
func (r *Recorder) OnWindowFocused(h uint32) { r.add(Entry{Kind: "focused", Handle: h}) }

// OnWindowResized implements api.WindowObserver.
func (r *Recorder) OnWindowResized(h, w, ht uint32) {
	r.add(Entry{Kind: "resized", Handle: h, Width: w, Height: ht})
}

// Send implements api.RemoteChannel.
func (r *Recorder) Send(m message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Kind: "message", Message: m})
	return r.sendErr
}

// Entries returns a copy of the journal.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the journal length.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Events returns recorded sink events in order.
func (r *Recorder) Events() []event.Event {
	var out []event.Event
	for _, e := range r.Entries() {
		if e.Kind == "event" {
			out = append(out, e.Event)
		}
	}
	return out
}

// Messages returns recorded remote messages in order.
func (r *Recorder) Messages() []message.Message {
	var out []message.Message
	for _, e := range r.Entries() {
		if e.Kind == "message" {
			out = append(out, e.Message)
		}
	}
	return out
}

// Runner is a manual api.TaskRunner: tasks queue until RunAll.
type Runner struct {
	mu       sync.Mutex
	tasks    []api.Task
	closed   bool
	observer []func()
}

var (
	_ api.TaskRunner            = (*Runner)(nil)
	_ api.DestructionObservable = (*Runner)(nil)
)

// NewRunner creates an open runner.
func NewRunner() *Runner { return &Runner{} }

// PostTask implements api.TaskRunner.
func (r *Runner) PostTask(t api.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.tasks = append(r.tasks, t)
	return true
}

// Len returns the number of queued tasks.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// RunAll executes queued tasks in FIFO order and returns how many ran.
func (r *Runner) RunAll() int {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()
	for _, t := range tasks {
		t.Run()
	}
	return len(tasks)
}

// AddDestructionObserver implements api.DestructionObservable.
func (r *Runner) AddDestructionObserver(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = append(r.observer, fn)
}

// Destroy notifies observers and rejects further tasks; queued tasks are
// kept so tests can check they no longer deliver.
func (r *Runner) Destroy() {
	r.mu.Lock()
	r.closed = true
	obs := r.observer
	r.observer = nil
	r.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
}

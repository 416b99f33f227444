// Package api
// Author: momentics <momentics@gmail.com>
//
// Execution-context contracts: tasks, task runners and destruction observation.

package api

// Task is a unit of work executed on a target execution context.
type Task interface {
	Run()
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func()

// Run implements Task.
func (f TaskFunc) Run() { f() }

// TaskRunner accepts tasks for FIFO execution on its own context.
// PostTask never blocks and reports whether the task was queued.
type TaskRunner interface {
	PostTask(t Task) bool
}

// DestructionObservable notifies observers when an execution context is
// being torn down, before its queue is discarded.
type DestructionObservable interface {
	AddDestructionObserver(fn func())
}

// Package api
// Author: momentics <momentics@gmail.com>
//
// Protocol connection contract driven by the pump.

package api

// Connection is the wire-protocol connection collaborator.
//
// Once polling starts only the Dispatch Thread calls into a Connection, so
// implementations need not be safe for concurrent use. PrepareRead returns
// ErrQueueNotEmpty while decoded events are still queued; callers drain with
// DispatchPending until it succeeds, and only then may read.
type Connection interface {
	// Fd returns the socket descriptor backing the connection.
	Fd() int

	// PrepareRead announces the intention to read.
	PrepareRead() error

	// CancelRead withdraws a successful PrepareRead without reading.
	CancelRead()

	// ReadEvents reads available bytes and queues decoded events.
	// Must follow a successful PrepareRead.
	ReadEvents() error

	// DispatchPending runs callbacks for queued events without blocking.
	DispatchPending() (int, error)

	// Dispatch performs one blocking read-and-dispatch round.
	Dispatch() (int, error)

	// Flush writes buffered requests; backpressure is reported as an
	// error for which IsWouldBlock is true.
	Flush() error
}

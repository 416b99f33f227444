// File: dispatcher/lifecycle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import "fmt"

// State is the dispatcher lifecycle state.
type State int32

const (
	// Created: constructed, multiplexer registered if bridged.
	Created State = iota
	// Started: dispatch thread launched with background priority.
	Started
	// Running: the pump loop owns the dispatch thread.
	Running
	// Stopping: posts are ignored and the target reference is cleared.
	Stopping
	// Terminated: dispatch thread joined, multiplexer released.
	Terminated
)

var stateNames = [...]string{
	Created:    "created",
	Started:    "started",
	Running:    "running",
	Stopping:   "stopping",
	Terminated: "terminated",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Mode selects the delivery strategy. It is fixed at construction.
type Mode int

const (
	// ModeAuto picks bridged when a connection with a socket is supplied.
	ModeAuto Mode = iota
	// ModeDirect builds events locally and hands them to an EventSink.
	ModeDirect
	// ModeBridged polls the socket on the dispatch thread and forwards
	// messages through a RemoteChannel.
	ModeBridged
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeDirect:
		return "direct"
	case ModeBridged:
		return "bridged"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "direct":
		return ModeDirect, nil
	case "bridged":
		return ModeBridged, nil
	}
	return ModeAuto, fmt.Errorf("unknown dispatch mode %q", s)
}

// AdminTask is a control operation executed on the dispatch thread.
type AdminTask int

const (
	// Flush runs one flush/read/dispatch round outside the regular loop.
	Flush AdminTask = iota
	// Poll starts the pump loop (bridged mode only). Idempotent.
	Poll
)

func (t AdminTask) String() string {
	switch t {
	case Flush:
		return "flush"
	case Poll:
		return "poll"
	}
	return fmt.Sprintf("admin(%d)", int(t))
}

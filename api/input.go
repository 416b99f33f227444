// Package api
// Author: momentics <momentics@gmail.com>
//
// Input-side collaborators of the dispatcher.

package api

import (
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/keymap"
	"github.com/momentics/wldispatch/message"
)

// InputListener is the notifier surface invoked by protocol callbacks.
type InputListener interface {
	MotionNotify(x, y float32)
	ButtonNotify(handle uint32, state, flags int32, x, y float32)
	AxisNotify(x, y, xoffset, yoffset float32)
	PointerEnter(handle uint32, x, y float32)
	PointerLeave(handle uint32, x, y float32)
	KeyNotify(state, code, modifiers uint32)
	OutputSizeChanged(width, height uint32)
	WindowResized(handle, width, height uint32)
}

// EventSink receives locally built events in direct mode. Ownership of ev
// passes to the sink.
type EventSink interface {
	DispatchEvent(ev event.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev event.Event)

// DispatchEvent implements EventSink.
func (f EventSinkFunc) DispatchEvent(ev event.Event) { f(ev) }

// WindowObserver is notified of window lifecycle transitions in direct mode.
type WindowObserver interface {
	OnWindowEnter(handle uint32)
	OnWindowLeave(handle uint32)
	OnWindowFocused(handle uint32)
	OnWindowResized(handle, width, height uint32)
}

// KeyTranslator maps a protocol key code to a portable keyboard code.
type KeyTranslator interface {
	Translate(code uint32) keymap.KeyboardCode
}

// RemoteChannel forwards messages to a remote consumer in bridged mode.
// Delivery is fire-and-forget.
type RemoteChannel interface {
	Send(m message.Message) error
}

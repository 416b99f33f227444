// File: event/event.go
// Package event defines the input event payloads built in direct mode and
// handed to a local event sink.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Payloads are small value records. Ownership moves with the value: the
// producer builds it, the delivery task carries it, the sink receives it.

package event

import (
	"fmt"

	"github.com/momentics/wldispatch/keymap"
)

// Type classifies an input event.
type Type int

const (
	Unknown Type = iota
	MouseMoved
	MousePressed
	MouseReleased
	MouseWheel
	MouseEntered
	MouseExited
	KeyPressed
	KeyReleased
)

var typeNames = [...]string{
	Unknown:       "unknown",
	MouseMoved:    "mouse-moved",
	MousePressed:  "mouse-pressed",
	MouseReleased: "mouse-released",
	MouseWheel:    "mouse-wheel",
	MouseEntered:  "mouse-entered",
	MouseExited:   "mouse-exited",
	KeyPressed:    "key-pressed",
	KeyReleased:   "key-released",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ButtonStatePressed is the protocol value of a pressed pointer button.
const ButtonStatePressed int32 = 1

// Point is a surface-local coordinate pair.
type Point struct {
	X, Y float32
}

// Event is implemented by every payload variant.
type Event interface {
	EventType() Type
}

// MouseEvent covers motion, button, enter and exit.
type MouseEvent struct {
	Kind         Type
	Location     Point
	RootLocation Point
	Flags        int32
	Window       uint32 // surface handle, zero for motion
}

// EventType implements Event.
func (e *MouseEvent) EventType() Type { return e.Kind }

// WheelEvent is a scroll on top of the pointer position.
type WheelEvent struct {
	MouseEvent
	XOffset float32
	YOffset float32
}

// EventType implements Event.
func (e *WheelEvent) EventType() Type { return MouseWheel }

// KeyEvent carries a translated keyboard code.
type KeyEvent struct {
	Kind      Type
	KeyCode   keymap.KeyboardCode
	Modifiers uint32
	IsChar    bool
}

// EventType implements Event.
func (e *KeyEvent) EventType() Type { return e.Kind }

// NewMotion builds a MouseMoved event.
func NewMotion(x, y float32) *MouseEvent {
	return &MouseEvent{Kind: MouseMoved, Location: Point{x, y}, RootLocation: Point{x, y}}
}

// NewButton builds a pressed event when state equals ButtonStatePressed,
// a released event otherwise.
func NewButton(window uint32, state, flags int32, x, y float32) *MouseEvent {
	kind := MouseReleased
	if state == ButtonStatePressed {
		kind = MousePressed
	}
	return &MouseEvent{
		Kind:         kind,
		Location:     Point{x, y},
		RootLocation: Point{x, y},
		Flags:        flags,
		Window:       window,
	}
}

// NewWheel builds a MouseWheel event at (x, y) with the given offsets.
func NewWheel(x, y, xoffset, yoffset float32) *WheelEvent {
	return &WheelEvent{
		MouseEvent: MouseEvent{Kind: MouseWheel, Location: Point{x, y}, RootLocation: Point{x, y}},
		XOffset:    xoffset,
		YOffset:    yoffset,
	}
}

// NewCrossing builds MouseEntered (enter=true) or MouseExited.
func NewCrossing(enter bool, window uint32, x, y float32) *MouseEvent {
	kind := MouseExited
	if enter {
		kind = MouseEntered
	}
	return &MouseEvent{Kind: kind, Location: Point{x, y}, RootLocation: Point{x, y}, Window: window}
}

// NewKey builds KeyPressed for any non-zero state, KeyReleased otherwise.
func NewKey(state uint32, code keymap.KeyboardCode, modifiers uint32) *KeyEvent {
	kind := KeyReleased
	if state != 0 {
		kind = KeyPressed
	}
	return &KeyEvent{Kind: kind, KeyCode: code, Modifiers: modifiers, IsChar: true}
}

// File: wire/deliver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wire

import (
	"fmt"

	"github.com/momentics/wldispatch/api"
)

// ProtocolError is a fatal error reported by the peer or detected while
// decoding its events.
type ProtocolError struct {
	Object uint32
	Opcode uint16
	Code   uint32
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wire: protocol error on object %d opcode %d (code %d): %s",
		e.Object, e.Opcode, e.Code, e.Reason)
}

// arity is the argument count of each input event opcode.
var arity = map[uint16]int{
	OpMotion:     2,
	OpButton:     5,
	OpAxis:       4,
	OpEnter:      3,
	OpLeave:      3,
	OpKey:        3,
	OpOutputSize: 2,
	OpConfigure:  3,
}

// deliver routes one frame. l may be nil, in which case input events are
// consumed silently.
func deliver(f Frame, l api.InputListener, onDone func(uint32)) error {
	switch f.Object {
	case ObjectDisplay:
		return deliverDisplay(f, onDone)
	case ObjectInput:
	default:
		return &ProtocolError{Object: f.Object, Opcode: f.Opcode, Reason: "unknown object"}
	}
	want, ok := arity[f.Opcode]
	if !ok {
		return &ProtocolError{Object: f.Object, Opcode: f.Opcode, Reason: "unknown opcode"}
	}
	if len(f.Args) != want {
		return &ProtocolError{Object: f.Object, Opcode: f.Opcode, Reason: "bad argument count"}
	}
	if l == nil {
		return nil
	}
	a := f.Args
	switch f.Opcode {
	case OpMotion:
		l.MotionNotify(argf(a[0]), argf(a[1]))
	case OpButton:
		l.ButtonNotify(a[0], int32(a[1]), int32(a[2]), argf(a[3]), argf(a[4]))
	case OpAxis:
		l.AxisNotify(argf(a[0]), argf(a[1]), argf(a[2]), argf(a[3]))
	case OpEnter:
		l.PointerEnter(a[0], argf(a[1]), argf(a[2]))
	case OpLeave:
		l.PointerLeave(a[0], argf(a[1]), argf(a[2]))
	case OpKey:
		l.KeyNotify(a[0], a[1], a[2])
	case OpOutputSize:
		l.OutputSizeChanged(a[0], a[1])
	case OpConfigure:
		l.WindowResized(a[0], a[1], a[2])
	}
	return nil
}

func deliverDisplay(f Frame, onDone func(uint32)) error {
	switch f.Opcode {
	case OpDone:
		if len(f.Args) != 1 {
			return &ProtocolError{Object: f.Object, Opcode: f.Opcode, Reason: "bad argument count"}
		}
		if onDone != nil {
			onDone(f.Args[0])
		}
		return nil
	case OpError:
		pe := &ProtocolError{Object: f.Object, Opcode: f.Opcode, Reason: "peer reported error"}
		if len(f.Args) >= 2 {
			pe.Object, pe.Code = f.Args[0], f.Args[1]
		}
		return pe
	}
	return &ProtocolError{Object: f.Object, Opcode: f.Opcode, Reason: "unknown opcode"}
}

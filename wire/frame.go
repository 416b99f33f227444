// File: wire/frame.go
// Package wire implements a compact framed display protocol over a stream
// socket: enough of the wayland wire shape to carry input events from a
// compositor-side peer to the dispatcher.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A frame is an 8-byte header followed by 32-bit argument words:
//
//	word 0: object id
//	word 1: size<<16 | opcode   (size counts the header, in bytes)
//
// Floating point arguments travel as their IEEE-754 float32 bits.

package wire

import (
	"encoding/binary"
	"math"

	pkgerrors "github.com/pkg/errors"
)

const (
	headerSize = 8
	// MaxFrameSize bounds a single frame, header included.
	MaxFrameSize = 4096
)

// Object ids known to both ends.
const (
	ObjectDisplay uint32 = 1
	ObjectInput   uint32 = 2
)

// Display object opcodes. Sync is a request; Done and Error are events.
const (
	OpSync  uint16 = 0
	OpDone  uint16 = 0
	OpError uint16 = 1
)

// Input object event opcodes.
const (
	OpMotion uint16 = iota
	OpButton
	OpAxis
	OpEnter
	OpLeave
	OpKey
	OpOutputSize
	OpConfigure
)

// ErrMalformed marks a frame whose header cannot be trusted.
var ErrMalformed = pkgerrors.New("wire: malformed frame")

var order = binary.LittleEndian

// Frame is one decoded message.
type Frame struct {
	Object uint32
	Opcode uint16
	Args   []uint32
}

// Size returns the encoded length in bytes.
func (f Frame) Size() int { return headerSize + 4*len(f.Args) }

// AppendFrame encodes f onto buf.
func AppendFrame(buf []byte, f Frame) []byte {
	size := f.Size()
	buf = order.AppendUint32(buf, f.Object)
	buf = order.AppendUint32(buf, uint32(size)<<16|uint32(f.Opcode))
	for _, a := range f.Args {
		buf = order.AppendUint32(buf, a)
	}
	return buf
}

// Encode concatenates frames.
func Encode(frames ...Frame) []byte {
	var buf []byte
	for _, f := range frames {
		buf = AppendFrame(buf, f)
	}
	return buf
}

// DecodeFrames splits buf into complete frames and returns the unconsumed
// tail. A header announcing an impossible size is fatal.
func DecodeFrames(buf []byte) ([]Frame, []byte, error) {
	var frames []Frame
	for len(buf) >= headerSize {
		obj := order.Uint32(buf)
		word := order.Uint32(buf[4:])
		size := int(word >> 16)
		if size < headerSize || size%4 != 0 || size > MaxFrameSize {
			return frames, buf, pkgerrors.Wrapf(ErrMalformed, "object %d size %d", obj, size)
		}
		if len(buf) < size {
			break
		}
		args := make([]uint32, (size-headerSize)/4)
		for i := range args {
			args[i] = order.Uint32(buf[headerSize+4*i:])
		}
		frames = append(frames, Frame{Object: obj, Opcode: uint16(word), Args: args})
		buf = buf[size:]
	}
	return frames, buf, nil
}

func f32(v float32) uint32 { return math.Float32bits(v) }

func argf(a uint32) float32 { return math.Float32frombits(a) }

// Event builders used by the compositor side of a connection.

func MotionFrame(x, y float32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpMotion, Args: []uint32{f32(x), f32(y)}}
}

func ButtonFrame(handle uint32, state, flags int32, x, y float32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpButton,
		Args: []uint32{handle, uint32(state), uint32(flags), f32(x), f32(y)}}
}

func AxisFrame(x, y, xoffset, yoffset float32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpAxis,
		Args: []uint32{f32(x), f32(y), f32(xoffset), f32(yoffset)}}
}

func EnterFrame(handle uint32, x, y float32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpEnter, Args: []uint32{handle, f32(x), f32(y)}}
}

func LeaveFrame(handle uint32, x, y float32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpLeave, Args: []uint32{handle, f32(x), f32(y)}}
}

func KeyFrame(state, code, modifiers uint32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpKey, Args: []uint32{state, code, modifiers}}
}

func OutputSizeFrame(width, height uint32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpOutputSize, Args: []uint32{width, height}}
}

func ConfigureFrame(handle, width, height uint32) Frame {
	return Frame{Object: ObjectInput, Opcode: OpConfigure, Args: []uint32{handle, width, height}}
}

// DoneFrame answers a sync request carrying serial.
func DoneFrame(serial uint32) Frame {
	return Frame{Object: ObjectDisplay, Opcode: OpDone, Args: []uint32{serial}}
}

// ErrorFrame reports a fatal protocol error on object.
func ErrorFrame(object, code uint32) Frame {
	return Frame{Object: ObjectDisplay, Opcode: OpError, Args: []uint32{object, code}}
}

// SyncFrame is the client request asking the peer for a Done round trip.
func SyncFrame(serial uint32) Frame {
	return Frame{Object: ObjectDisplay, Opcode: OpSync, Args: []uint32{serial}}
}

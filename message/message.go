// File: message/message.go
// Package message defines the flat records forwarded to a remote consumer in
// bridged mode, and their JSON envelope encoding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import "fmt"

// Kind identifies a message record.
type Kind uint8

const (
	KindMotion Kind = iota + 1
	KindButton
	KindAxis
	KindPointerEnter
	KindPointerLeave
	KindKey
	KindOutputSize
	KindWindowResized
)

var kindNames = map[Kind]string{
	KindMotion:        "motion",
	KindButton:        "button",
	KindAxis:          "axis",
	KindPointerEnter:  "pointer-enter",
	KindPointerLeave:  "pointer-leave",
	KindKey:           "key",
	KindOutputSize:    "output-size",
	KindWindowResized: "window-resized",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is implemented by every record.
type Message interface {
	Kind() Kind
}

type Motion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type Button struct {
	Handle uint32  `json:"handle"`
	State  int32   `json:"state"`
	Flags  int32   `json:"flags"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

type Axis struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	XOffset float32 `json:"xoffset"`
	YOffset float32 `json:"yoffset"`
}

type PointerEnter struct {
	Handle uint32  `json:"handle"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

type PointerLeave struct {
	Handle uint32  `json:"handle"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

type Key struct {
	State     uint32 `json:"state"`
	Code      uint32 `json:"code"`
	Modifiers uint32 `json:"modifiers"`
}

type OutputSize struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

type WindowResized struct {
	Handle uint32 `json:"handle"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

func (Motion) Kind() Kind        { return KindMotion }
func (Button) Kind() Kind        { return KindButton }
func (Axis) Kind() Kind          { return KindAxis }
func (PointerEnter) Kind() Kind  { return KindPointerEnter }
func (PointerLeave) Kind() Kind  { return KindPointerLeave }
func (Key) Kind() Kind           { return KindKey }
func (OutputSize) Kind() Kind    { return KindOutputSize }
func (WindowResized) Kind() Kind { return KindWindowResized }

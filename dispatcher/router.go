// File: dispatcher/router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Delivery strategies. Each notifier builds one owned value and posts it
// through Dispatcher.post; the value is consumed on the target context.

package dispatcher

import (
	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/event"
	"github.com/momentics/wldispatch/message"
)

// router is the per-mode strategy behind the public notifiers.
type router interface {
	api.InputListener
}

// bridgedRouter forwards primitive payloads to the remote channel. Calls
// made before the pump loop runs are dropped.
type bridgedRouter struct {
	d *Dispatcher
}

func (r bridgedRouter) forward(m message.Message) {
	if r.d.State() != Running {
		r.d.dropped()
		return
	}
	r.d.post(remoteDelivery{d: r.d, msg: m})
}

func (r bridgedRouter) MotionNotify(x, y float32) {
	r.forward(message.Motion{X: x, Y: y})
}

func (r bridgedRouter) ButtonNotify(handle uint32, state, flags int32, x, y float32) {
	r.forward(message.Button{Handle: handle, State: state, Flags: flags, X: x, Y: y})
}

func (r bridgedRouter) AxisNotify(x, y, xoffset, yoffset float32) {
	r.forward(message.Axis{X: x, Y: y, XOffset: xoffset, YOffset: yoffset})
}

func (r bridgedRouter) PointerEnter(handle uint32, x, y float32) {
	r.forward(message.PointerEnter{Handle: handle, X: x, Y: y})
}

func (r bridgedRouter) PointerLeave(handle uint32, x, y float32) {
	r.forward(message.PointerLeave{Handle: handle, X: x, Y: y})
}

func (r bridgedRouter) KeyNotify(state, code, modifiers uint32) {
	r.forward(message.Key{State: state, Code: code, Modifiers: modifiers})
}

func (r bridgedRouter) OutputSizeChanged(width, height uint32) {
	r.forward(message.OutputSize{Width: width, Height: height})
}

func (r bridgedRouter) WindowResized(handle, width, height uint32) {
	r.forward(message.WindowResized{Handle: handle, Width: width, Height: height})
}

// directRouter builds events locally. Transitions that imply focus,
// crossing or resize notify the window observer first.
type directRouter struct {
	d *Dispatcher
}

func (r directRouter) MotionNotify(x, y float32) {
	r.d.post(localDelivery{d: r.d, ev: event.NewMotion(x, y)})
}

func (r directRouter) ButtonNotify(handle uint32, state, flags int32, x, y float32) {
	r.d.post(observerNotice{d: r.d, kind: noticeFocused, handle: handle})
	r.d.post(localDelivery{d: r.d, ev: event.NewButton(handle, state, flags, x, y)})
}

func (r directRouter) AxisNotify(x, y, xoffset, yoffset float32) {
	r.d.post(localDelivery{d: r.d, ev: event.NewWheel(x, y, xoffset, yoffset)})
}

func (r directRouter) PointerEnter(handle uint32, x, y float32) {
	r.d.post(observerNotice{d: r.d, kind: noticeEnter, handle: handle})
	r.d.post(localDelivery{d: r.d, ev: event.NewCrossing(true, handle, x, y)})
}

func (r directRouter) PointerLeave(handle uint32, x, y float32) {
	r.d.post(observerNotice{d: r.d, kind: noticeLeave, handle: handle})
	r.d.post(localDelivery{d: r.d, ev: event.NewCrossing(false, handle, x, y)})
}

func (r directRouter) KeyNotify(state, code, modifiers uint32) {
	r.d.post(localDelivery{d: r.d, ev: event.NewKey(state, r.d.keys.Translate(code), modifiers)})
}

// OutputSizeChanged has no local consumer.
func (r directRouter) OutputSizeChanged(width, height uint32) {}

func (r directRouter) WindowResized(handle, width, height uint32) {
	r.d.post(observerNotice{d: r.d, kind: noticeResized, handle: handle, width: width, height: height})
}

// remoteDelivery sends one message through the remote channel.
type remoteDelivery struct {
	d   *Dispatcher
	msg message.Message
}

func (t remoteDelivery) Run() {
	if !t.d.live() {
		return
	}
	if err := t.d.remote.Send(t.msg); err != nil {
		t.d.metrics.Add("dispatcher.remote_errors", 1)
		t.d.logger.Printf("[dispatcher] remote send %s: %v", t.msg.Kind(), err)
	}
}

// localDelivery hands one event to the sink.
type localDelivery struct {
	d  *Dispatcher
	ev event.Event
}

func (t localDelivery) Run() {
	if !t.d.live() {
		return
	}
	t.d.sink.DispatchEvent(t.ev)
}

type noticeKind uint8

const (
	noticeEnter noticeKind = iota
	noticeLeave
	noticeFocused
	noticeResized
)

// observerNotice invokes the window observer, if one is set when it runs.
type observerNotice struct {
	d      *Dispatcher
	kind   noticeKind
	handle uint32
	width  uint32
	height uint32
}

func (t observerNotice) Run() {
	if !t.d.live() {
		return
	}
	obs := t.d.Observer()
	if obs == nil {
		return
	}
	switch t.kind {
	case noticeEnter:
		obs.OnWindowEnter(t.handle)
	case noticeLeave:
		obs.OnWindowLeave(t.handle)
	case noticeFocused:
		obs.OnWindowFocused(t.handle)
	case noticeResized:
		obs.OnWindowResized(t.handle, t.width, t.height)
	}
}

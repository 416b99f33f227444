package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/event"
)

// printer renders direct-mode deliveries as text lines or JSON records.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
}

var (
	_ api.EventSink      = (*printer)(nil)
	_ api.WindowObserver = (*printer)(nil)
)

func newPrinter(out io.Writer, format string) *printer {
	return &printer{out: out, json: format == "json"}
}

type record struct {
	Type   string  `json:"type"`
	Handle uint32  `json:"handle,omitempty"`
	X      float32 `json:"x,omitempty"`
	Y      float32 `json:"y,omitempty"`
	DX     float32 `json:"dx,omitempty"`
	DY     float32 `json:"dy,omitempty"`
	Key    string  `json:"key,omitempty"`
	Mods   uint32  `json:"modifiers,omitempty"`
	Width  uint32  `json:"width,omitempty"`
	Height uint32  `json:"height,omitempty"`
}

func (p *printer) emit(r record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		_ = json.NewEncoder(p.out).Encode(r)
		return
	}
	switch {
	case r.Key != "":
		fmt.Fprintf(p.out, "%-14s %s mods=%#x\n", r.Type, r.Key, r.Mods)
	case r.Width != 0 || r.Height != 0:
		fmt.Fprintf(p.out, "%-14s surface=%d %dx%d\n", r.Type, r.Handle, r.Width, r.Height)
	case r.DX != 0 || r.DY != 0:
		fmt.Fprintf(p.out, "%-14s (%.1f, %.1f) delta=(%.1f, %.1f)\n", r.Type, r.X, r.Y, r.DX, r.DY)
	default:
		fmt.Fprintf(p.out, "%-14s surface=%d (%.1f, %.1f)\n", r.Type, r.Handle, r.X, r.Y)
	}
}

func (p *printer) DispatchEvent(ev event.Event) {
	r := record{Type: ev.EventType().String()}
	switch e := ev.(type) {
	case *event.WheelEvent:
		r.X, r.Y, r.DX, r.DY = e.Location.X, e.Location.Y, e.XOffset, e.YOffset
	case *event.MouseEvent:
		r.Handle, r.X, r.Y = e.Window, e.Location.X, e.Location.Y
	case *event.KeyEvent:
		r.Key, r.Mods = e.KeyCode.String(), e.Modifiers
	}
	p.emit(r)
}

func (p *printer) OnWindowEnter(h uint32)   { p.emit(record{Type: "window-enter", Handle: h}) }
func (p *printer) OnWindowLeave(h uint32)   { p.emit(record{Type: "window-leave", Handle: h}) }
func (p *printer) OnWindowFocused(h uint32) { p.emit(record{Type: "window-focused", Handle: h}) }

func (p *printer) OnWindowResized(h, w, ht uint32) {
	p.emit(record{Type: "window-resized", Handle: h, Width: w, Height: ht})
}

//go:build linux
// +build linux

package main

import (
	"math"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/wire"
)

// serveDemo listens on path and plays a short pointer and keyboard script
// to the first client, then answers its sync requests.
func serveDemo(path string, logger api.Logger) (func(), error) {
	ln, err := wire.Listen(path)
	if err != nil {
		return nil, err
	}
	go func() {
		peer, err := ln.Accept()
		if err != nil {
			return
		}
		defer peer.Close()
		if err := peer.Send(demoScript()...); err != nil {
			logger.Printf("[demo] send: %v", err)
			return
		}
		_ = peer.ServeSync()
	}()
	return func() { ln.Close() }, nil
}

func demoScript() []wire.Frame {
	const surface = 1
	frames := []wire.Frame{
		wire.OutputSizeFrame(1920, 1080),
		wire.ConfigureFrame(surface, 800, 600),
		wire.EnterFrame(surface, 10, 10),
	}
	for i := 0; i < 16; i++ {
		a := float64(i) * math.Pi / 8
		frames = append(frames, wire.MotionFrame(float32(400+100*math.Cos(a)), float32(300+100*math.Sin(a))))
	}
	frames = append(frames,
		wire.ButtonFrame(surface, 1, 0x110, 500, 300),
		wire.ButtonFrame(surface, 0, 0x110, 500, 300),
		wire.AxisFrame(500, 300, 0, 15),
		wire.KeyFrame(1, 0x68, 0),
		wire.KeyFrame(0, 0x68, 0),
		wire.KeyFrame(1, 0x69, 0),
		wire.KeyFrame(0, 0x69, 0),
		wire.LeaveFrame(surface, 799, 300),
	)
	return frames
}

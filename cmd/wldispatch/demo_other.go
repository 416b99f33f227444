//go:build !linux
// +build !linux

package main

import "github.com/momentics/wldispatch/api"

func serveDemo(path string, logger api.Logger) (func(), error) {
	return nil, api.ErrNotSupported
}

// Package api
// Author: momentics
//
// Live introspection of dispatcher state.

package api

// Debug exposes named probes over the running dispatcher.
type Debug interface {
	// DumpState evaluates every probe and returns the results by name.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a probe.
	RegisterProbe(name string, fn func() any)
}

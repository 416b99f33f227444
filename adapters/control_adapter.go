// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control over the control package
// primitives. One adapter is shared by the pump, the dispatcher and the
// facade that exposes it.

package adapters

import (
	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/control"
)

// ControlAdapter bundles config, metrics and debug probes.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter creates an adapter with platform probes registered.
func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

// GetConfig returns the effective configuration snapshot.
func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig merges values into the effective configuration.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}

// OnReload registers a listener for SetConfig.
func (c *ControlAdapter) OnReload(fn func(map[string]any)) {
	c.config.OnReload(fn)
}

// Stats merges metrics with probe results under a "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

// Metrics returns the registry; it satisfies the pump and dispatcher
// metrics contract.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry {
	return c.metrics
}

// Debug returns the probe registry.
func (c *ControlAdapter) Debug() api.Debug {
	return c.debug
}

// RegisterDebugProbe adds a named probe.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

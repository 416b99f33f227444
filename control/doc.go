// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, effective configuration and debug introspection for the
// dispatcher.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads with reload listeners
//   - Counters and gauges fed by the pump and the dispatcher
//   - Named debug probes over live state
//
// This package is cross-platform and build-tag-partitioned as needed.
package control

// Package api
// Author: momentics <momentics@gmail.com>
//
// Minimal logging contract, satisfied by *log.Logger.

package api

// Logger writes formatted diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

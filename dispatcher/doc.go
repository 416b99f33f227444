// Package dispatcher implements the background display-protocol dispatcher:
// a dispatch thread that owns the protocol connection and its readiness
// multiplexer, and a router that hands input notifications to a target
// execution context, either as locally built events (direct mode) or as
// messages forwarded to a remote consumer (bridged mode).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Producers never block and never see errors: every notifier either queues
// one delivery on the target context or drops the call. After Close (or the
// destruction of the target context) every entry point is a no-op.
package dispatcher

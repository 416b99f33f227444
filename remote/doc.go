// Package remote
// Author: momentics <momentics@gmail.com>
//
// Remote channel implementations for bridged mode: a websocket client that
// ships JSON envelopes to a consumer, the fasthttp-based receiver that
// consumes them, and an in-memory channel for same-process bridging.
package remote

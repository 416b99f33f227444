// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexer used by the dispatch
// thread: a close-on-exec epoll instance watching one protocol socket plus an
// internal eventfd used to interrupt a blocked Wait.
package reactor

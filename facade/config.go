// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Run configuration. Precedence, highest first: CLI flags, WLDISPATCH_*
// environment variables, DefaultConfig.

package facade

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/wldispatch/api"
	"github.com/momentics/wldispatch/dispatcher"
)

// Config holds parameters immutable per run.
type Config struct {
	Mode           string        // auto, direct or bridged
	SocketPath     string        // framed display socket; empty runs without a connection
	RemoteURL      string        // websocket URL of the remote consumer (bridged)
	QueueSize      int           // remote send queue bound
	WaitBatch      int           // ready events per wait
	ThreadPriority int           // nice value of the dispatch thread, negative leaves it alone
	CPUs           []int         // dispatch thread affinity, empty leaves it alone
	TargetName     string        // name of the target execution context
	FlushInterval  time.Duration // direct mode: period of posted Flush tasks, zero disables
	DialTimeout    time.Duration // remote dial timeout
	EnableMetrics  bool          // feed counters into Control
	EnableDebug    bool          // register debug probes
	Verbose        bool          // per-iteration pump traces
}

// DefaultConfig returns defaults suitable for a background dispatcher.
func DefaultConfig() *Config {
	return &Config{
		Mode:           dispatcher.ModeAuto.String(),
		QueueSize:      1024,
		WaitBatch:      16,
		ThreadPriority: dispatcher.BackgroundPriority,
		TargetName:     "wl-target",
		FlushInterval:  10 * time.Millisecond,
		DialTimeout:    5 * time.Second,
		EnableMetrics:  true,
		EnableDebug:    true,
	}
}

// LoadFromEnv overlays WLDISPATCH_* variables onto cfg. Only non-empty
// values override. Booleans accept "1", "true" and "yes".
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WLDISPATCH_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("WLDISPATCH_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("WLDISPATCH_REMOTE_URL"); v != "" {
		cfg.RemoteURL = v
	}
	if v := envInt("WLDISPATCH_QUEUE_SIZE"); v > 0 {
		cfg.QueueSize = v
	}
	if v := envInt("WLDISPATCH_WAIT_BATCH"); v > 0 {
		cfg.WaitBatch = v
	}
	if v, ok := os.LookupEnv("WLDISPATCH_PRIORITY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ThreadPriority = n
		}
	}
	if v := os.Getenv("WLDISPATCH_CPUS"); v != "" {
		if cpus, ok := parseCPUs(v); ok {
			cfg.CPUs = cpus
		}
	}
	if v := os.Getenv("WLDISPATCH_TARGET"); v != "" {
		cfg.TargetName = v
	}
	if v := envInt("WLDISPATCH_FLUSH_MS"); v > 0 {
		cfg.FlushInterval = time.Duration(v) * time.Millisecond
	}
	if envBool("WLDISPATCH_NO_METRICS") {
		cfg.EnableMetrics = false
	}
	if envBool("WLDISPATCH_NO_DEBUG") {
		cfg.EnableDebug = false
	}
	if envBool("WLDISPATCH_VERBOSE") {
		cfg.Verbose = true
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// parseCPUs reads a comma separated CPU list such as "0,2".
func parseCPUs(v string) ([]int, bool) {
	var cpus []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, false
		}
		cpus = append(cpus, n)
	}
	return cpus, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if _, err := dispatcher.ParseMode(c.Mode); err != nil {
		return errors.Wrap(api.ErrInvalidArgument, err.Error())
	}
	if c.WaitBatch <= 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "wait batch %d", c.WaitBatch)
	}
	if c.QueueSize <= 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "queue size %d", c.QueueSize)
	}
	if c.ThreadPriority > 19 {
		return errors.Wrapf(api.ErrInvalidArgument, "thread priority %d above 19", c.ThreadPriority)
	}
	for _, cpu := range c.CPUs {
		if cpu < 0 {
			return errors.Wrapf(api.ErrInvalidArgument, "cpu %d", cpu)
		}
	}
	if c.FlushInterval < 0 {
		return errors.Wrap(api.ErrInvalidArgument, "negative flush interval")
	}
	if c.TargetName == "" {
		return errors.Wrap(api.ErrInvalidArgument, "empty target name")
	}
	return nil
}

// snapshot renders the effective configuration for Control.
func (c *Config) snapshot() map[string]any {
	return map[string]any{
		"mode":            c.Mode,
		"socket_path":     c.SocketPath,
		"remote_url":      c.RemoteURL,
		"queue_size":      c.QueueSize,
		"wait_batch":      c.WaitBatch,
		"thread_priority": c.ThreadPriority,
		"cpus":            append([]int(nil), c.CPUs...),
		"target_name":     c.TargetName,
		"flush_interval":  c.FlushInterval.String(),
		"metrics.enabled": c.EnableMetrics,
		"debug.enabled":   c.EnableDebug,
		"verbose":         c.Verbose,
	}
}

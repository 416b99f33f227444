package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/momentics/wldispatch/facade"
)

var version = "0.1.0" //nolint:gochecknoglobals

type options struct {
	cfg           *facade.Config
	format        string
	demo          bool
	statsInterval time.Duration
	showVersion   bool
	showHelp      bool
}

// parseArgs layers flags over the environment over defaults.
func parseArgs(args []string, stdout io.Writer) (*options, *flag.FlagSet, error) {
	cfg := facade.DefaultConfig()
	facade.LoadFromEnv(cfg)
	o := &options{cfg: cfg}

	fs := flag.NewFlagSet("wldispatch", flag.ContinueOnError)
	fs.SetOutput(stdout)

	// ── routing ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.Mode, "mode", "m", cfg.Mode, "Dispatch mode: auto, direct or bridged")
	fs.StringVarP(&cfg.SocketPath, "socket", "s", cfg.SocketPath, "Display socket path")
	fs.StringVarP(&cfg.RemoteURL, "remote", "r", cfg.RemoteURL, "Remote consumer websocket URL")
	fs.BoolVar(&o.demo, "demo", false, "Serve a synthetic compositor on --socket")

	// ── tuning ───────────────────────────────────────────────────
	fs.IntVar(&cfg.WaitBatch, "batch", cfg.WaitBatch, "Ready events per wait")
	fs.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Remote send queue size")
	fs.IntVar(&cfg.ThreadPriority, "priority", cfg.ThreadPriority, "Dispatch thread nice value (negative: unchanged)")
	fs.IntSliceVar(&cfg.CPUs, "cpus", cfg.CPUs, "Pin the dispatch thread to these CPUs")
	fs.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "Direct mode flush period")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "Remote dial timeout")

	// ── output ───────────────────────────────────────────────────
	fs.StringVarP(&o.format, "format", "f", "", "Output format: text or json (default: text on a terminal)")
	fs.DurationVar(&o.statsInterval, "stats-interval", 0, "Print runtime stats periodically")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Trace every pump iteration")
	noMetrics := fs.Bool("no-metrics", !cfg.EnableMetrics, "Disable metrics collection")

	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&o.showHelp, "help", "h", false, "Show this help")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	cfg.EnableMetrics = !*noMetrics
	if o.format == "" {
		o.format = "json"
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			o.format = "text"
		}
	}
	if o.format != "text" && o.format != "json" {
		return nil, fs, fmt.Errorf("unknown format %q", o.format)
	}
	if o.demo && cfg.SocketPath == "" {
		return nil, fs, fmt.Errorf("--demo needs --socket")
	}
	return o, fs, cfg.Validate()
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, fs, err := parseArgs(args, stdout)
	if err != nil {
		return err
	}
	if o.showHelp {
		fmt.Fprintf(stdout, "Usage: wldispatch [flags]\n\n")
		fs.PrintDefaults()
		return nil
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "wldispatch %s\n", version)
		return nil
	}

	logger := log.New(stderr, "", log.LstdFlags|log.Lmicroseconds)
	if o.demo {
		stop, err := serveDemo(o.cfg.SocketPath, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	p := newPrinter(stdout, o.format)
	w, err := facade.New(o.cfg,
		facade.WithLogger(logger),
		facade.WithSink(p),
		facade.WithObserver(p),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	var tick <-chan time.Time
	if o.statsInterval > 0 {
		t := time.NewTicker(o.statsInterval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			printStats(stderr, w.GetControl().Stats())
			return nil
		case <-w.Done():
			printStats(stderr, w.GetControl().Stats())
			return w.Dispatcher().Err()
		case <-tick:
			printStats(stderr, w.GetControl().Stats())
		}
	}
}

func printStats(out io.Writer, stats map[string]any) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%-28s %v\n", k, stats[k])
	}
}

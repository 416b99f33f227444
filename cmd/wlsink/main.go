// Command wlsink is the remote consumer of a bridged dispatcher: it accepts
// websocket producers and prints every message they forward.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/momentics/wldispatch/message"
	"github.com/momentics/wldispatch/remote"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wlsink: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("wlsink", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.StringP("listen", "l", "127.0.0.1:9370", "Address to accept producers on")
	format := fs.StringP("format", "f", "", "Output format: text or json (default: text on a terminal)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format == "" {
		*format = "json"
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			*format = "text"
		}
	}

	logger := log.New(stderr, "", log.LstdFlags|log.Lmicroseconds)
	var mu sync.Mutex
	r := remote.NewReceiver(func(m message.Message) {
		mu.Lock()
		defer mu.Unlock()
		printMessage(stdout, *format, m)
	}, logger)

	errc := make(chan error, 1)
	go func() { errc <- r.ListenAndServe(*addr) }()
	logger.Printf("[wlsink] listening on %s", *addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	err := r.Shutdown()
	logger.Printf("[wlsink] stats: %v", r.Stats())
	return err
}

func printMessage(out io.Writer, format string, m message.Message) {
	if format == "json" {
		raw, err := message.Encode(m)
		if err != nil {
			return
		}
		fmt.Fprintf(out, "%s\n", raw)
		return
	}
	data, _ := json.Marshal(m)
	fmt.Fprintf(out, "%-14s %s\n", m.Kind(), data)
}

// Command wldispatch connects to a framed display socket and routes its
// input events, either to a remote consumer (bridged) or to stdout (direct).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wldispatch: %v\n", err)
		os.Exit(1)
	}
}

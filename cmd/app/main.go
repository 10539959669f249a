package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cryptoverse/internal/cli"
)

// Version is set at build time.
var Version = "dev"

func main() {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, Version, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

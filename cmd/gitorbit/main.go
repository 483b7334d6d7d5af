package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gitorbit:", err)
		fmt.Fprintln(os.Stderr, "Run 'gitorbit -h' for help")
		cancel()
		os.Exit(1)
	}
}

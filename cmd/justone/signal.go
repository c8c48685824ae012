package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalHandler returns a context that is cancelled when SIGINT or
// SIGTERM arrives. Cancellation stops the scan before the next directory is
// read and hashing before the next file is opened.
func setupSignalHandler(parent context.Context, stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			fmt.Fprintf(stderr, "\nReceived signal: %v, stopping...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

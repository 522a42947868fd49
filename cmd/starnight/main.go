package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "starnight: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, s := newRootCmd()
	err := root.ExecuteContext(ctx)
	if closeErr := s.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/crediq/selfheal/cmd"
	"github.com/crediq/selfheal/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// Package main is the entry point for the gtasks CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gtasks/internal/backend/googletasks"
	"gtasks/internal/cli"
	"gtasks/internal/commands"
	"gtasks/internal/config"
	"gtasks/internal/service"
)

func main() {
	// Cancel on interrupt so run can publish offline and unload
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// The client is built once per process and shared by every component
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return googletasks.New(ctx, cfg)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fujiwara/trafficlight"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	trafficlight.Version = Version
	var cli trafficlight.CLI
	kong.Parse(&cli, kong.Vars{"version": trafficlight.Version})
	return trafficlight.Run(ctx, &cli)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldops/fieldops/cmd/fieldctl/cli"
	"github.com/fieldops/fieldops/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "fieldctl: load config: %v\n", err)
		return cli.ExitError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	built, err := app.BuildMaterials(ctx, cfg, logger, nil)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "fieldctl: %v\n", err)
		return cli.ExitError
	}
	defer built.Close()

	runner := &cli.Runner{Materials: built.Service, Catalog: built.Catalog}
	if !app.InTestMode() {
		queue, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			logger.Warn("queue helpers disabled", slog.Any("error", err))
		} else {
			defer func() { _ = queue.Close() }()
			runner.Queue = queue
		}
	}
	return runner.Run(ctx, os.Args[1:])
}

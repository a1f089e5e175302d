package main

import (
	"context"
	"log"
	"os"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/bootstrap"
	"github.com/Domenick1991/flightreservation/internal/observability"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	open := func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.NewApp(ctx, cfg, logger)
	}
	if err := newCLI(cfg, logger, open, os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

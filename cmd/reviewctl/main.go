package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()
	if err := newApp(cfg, os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("reviewctl failed")
		stop()
		os.Exit(1)
	}
}

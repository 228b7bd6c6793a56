package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thereayou/gm-table/internal/config"
	"github.com/thereayou/gm-table/internal/logger"
)

func main() {
	cfg, loaded, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	lg := logger.New(cfg.LogLevel, cfg.LogPretty)
	if len(loaded) == 0 {
		lg.Info().Msg(".env not found, using environment variables")
	} else {
		lg.Info().Strs("files", loaded).Msg("env files loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("startup failed")
	}
	if err := srv.Run(ctx); err != nil {
		lg.Error().Err(err).Msg("server stopped")
		stop()
		os.Exit(1)
	}
	lg.Info().Msg("server stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/sugampay/internal/bootstrap"
	"github.com/example/sugampay/internal/config"
	"github.com/example/sugampay/internal/logging"
	"github.com/example/sugampay/internal/routes"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("local", "info")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, cfg, log, true)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	rt := bootstrap.New(cfg, st, log)

	app := routes.NewApp(cfg, log)
	routes.Register(app, cfg, rt.Orders, rt.Payments, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.AppPort).Str("store", cfg.StoreDriver).Msg("starting server")
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("fiber.Listen error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	if err := rt.Close(); err != nil {
		log.Error().Err(err).Msg("failed to release resources")
	}
}

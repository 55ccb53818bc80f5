package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos/adapter"
	"github.com/nixxel-company-limited/escpos/config"
	"github.com/nixxel-company-limited/escpos/logging"
	"github.com/nixxel-company-limited/escpos/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (environment variables ESCPOS_* override it)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Server will listen", zap.String("address", cfg.Server.Address), zap.String("sink", cfg.Sink.Type))

	device, err := adapter.New(cfg.Sink, logger)
	if err != nil {
		return err
	}
	defer device.Close()

	svr := server.New(device, cfg.Server.Address,
		server.WithLogger(logger),
		server.WithResetOnStart(cfg.Server.ResetOnStart),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svr.StartAsync(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	return svr.Stop()
}

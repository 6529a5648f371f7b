package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightharbor/homecare-platform/internal/config"
	lifecycleworker "github.com/brightharbor/homecare-platform/internal/worker/lifecycle"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("lifecycle worker shutting down")
		cancel()
	}()

	if err := lifecycleworker.Run(ctx, cfg, logger); err != nil {
		logger.Error("lifecycle worker exited", "error", err)
		os.Exit(1)
	}
}

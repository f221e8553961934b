package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johnrirwin/journalfeed/internal/app"
	"github.com/johnrirwin/journalfeed/internal/config"
	"github.com/johnrirwin/journalfeed/internal/logging"
)

func main() {
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		logging.New(logging.LevelError).Error("Failed to initialize application", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	logger := application.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := <-sigChan
		logger.Info("Shutting down...", logging.WithField("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", logging.WithField("error", err.Error()))
		}
	}()

	if err := application.Run(ctx); err != nil {
		logger.Error("HTTP server error", logging.WithField("error", err.Error()))
		application.Close()
		os.Exit(1)
	}
	<-stopped
	logger.Info("Server stopped")
}

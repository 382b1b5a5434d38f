package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/di"
	"github.com/mikey/phish-screen/internal/ocr"
	"github.com/mikey/phish-screen/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server ports.Server,
	ocrClient *ocr.Client,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the OCR connection pool before accepting traffic
	if err := ocrClient.Warm(ctx); err != nil {
		logger.Warn("OCR client warm-up failed, will retry on first request", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetServer().ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop server", zap.Error(err))
	}

	if err := ocrClient.Close(); err != nil {
		logger.Error("Failed to close OCR client", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/di"
	"github.com/vcaboara/job-lead-finder-sub000/internal/store"
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
	logger *zap.Logger,
	server core.InboundServer,
	fileStore *store.FileStore,
	assist core.AssistClient,
	jobs core.JobStore,
) error {
	defer logger.Sync()

	// Start the inbound server
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start inbound server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the inbound server
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop inbound server", zap.Error(err))
	}

	// Stop the background eviction sweep
	fileStore.Stop()

	// Close any resources that need closing
	if closer, ok := assist.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close assist client", zap.Error(err))
		}
	}
	if stopper, ok := jobs.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}

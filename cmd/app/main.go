package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"ProjectZukan/internal/config"
	"ProjectZukan/pkg/log"
)

func main() {
	env := config.Load()
	logger := log.NewLogger()

	fiberApp := config.NewFiber(logger, env)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithFiber(fiberApp),
		config.WithValidator(validator),
		config.WithUtils(),
		config.WithMiddleware(),
		config.WithRepository(),
		config.WithImageStore(),
		config.WithDetector(),
		config.WithDescriber(),
		config.WithCamera(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Server stopped")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"product-filter/src/app"
	"product-filter/src/config"
	"product-filter/src/logger"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)

	// 4. Setup Components
	a, err := app.Setup(conf, appLogger)
	if err != nil {
		appLogger.Critical("Setup failed: %v", err)
	}
	defer a.Close()

	// 5. Start Servers and the price-update job
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	servers := startServers(ctx, a, appLogger)

	// 6. Wait for a signal or a fatal server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received %s, shutting down...", sig)
	case err := <-servers.errs:
		appLogger.Error("Server failed: %v", err)
	}

	cancel()
	servers.stop()
	appLogger.Info("Shutdown complete.")
}

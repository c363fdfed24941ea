// Command probe runs one search against the configured marketplaces and
// prints the response as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"product-filter/src/app"
	"product-filter/src/config"
	"product-filter/src/logger"
	"product-filter/src/models"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	category := flag.String("category", "", "category key, e.g. videocards")
	queries := flag.String("queries", "", "comma-separated queries; defaults to the category's tracked queries")
	limit := flag.Int("limit", 0, "maximum listings to print (0 = configured limit)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *category == "" {
		fmt.Fprintf(os.Stderr, "-category is required; known: %s\n", strings.Join(conf.Categories(), ", "))
		os.Exit(2)
	}

	// Logs go to stderr so stdout stays valid JSON.
	appLogger := logger.NewLoggerTo(os.Stderr, conf.LogLevel, "probe")

	a, err := app.Setup(conf, appLogger)
	if err != nil {
		appLogger.Critical("Setup failed: %v", err)
	}
	defer a.Close()

	req := models.MSearchRequest{Category: *category, Limit: *limit}
	if *queries != "" {
		req.Queries = strings.Split(*queries, ",")
	} else {
		req.Queries = conf.TrackedQueries(*category)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	resp, err := a.Orchestrator.Search(ctx, req)
	if err != nil {
		appLogger.Error("Search failed: %v", err)
		a.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		appLogger.Error("Encode failed: %v", err)
	}
}

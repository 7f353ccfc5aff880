// Quorum orchestrator server — runs the multi-agent incident-response graph
// behind an HTTP API, with checkpoint persistence and retention cleanup.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/incident-ops/quorum/pkg/agent"
	"github.com/incident-ops/quorum/pkg/api"
	"github.com/incident-ops/quorum/pkg/cleanup"
	"github.com/incident-ops/quorum/pkg/config"
	"github.com/incident-ops/quorum/pkg/database"
	"github.com/incident-ops/quorum/pkg/graph"
	"github.com/incident-ops/quorum/pkg/observability"
	"github.com/incident-ops/quorum/pkg/services"
	"github.com/incident-ops/quorum/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting quorum",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	slog.Info("Configuration loaded",
		"agents", stats.Agents, "priced_models", stats.PricedModels)

	// 2. Initialize database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Domain services
	traceTTL := time.Duration(cfg.Retention.TraceRetentionDays) * 24 * time.Hour
	checkpointService := services.NewCheckpointService(dbClient)
	traceService := services.NewTraceService(dbClient, traceTTL)
	violationService := services.NewViolationService(dbClient)
	recommendationService := services.NewRecommendationService(dbClient)
	slog.Info("Services initialized")

	// 4. Observability plane
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	plane := observability.NewPlane(traceService, violationService, metrics)

	// 5. Agent transport.
	// The AWS SDK client dials lazily; the first invocation opens the stream.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Bedrock.Region))
	if err != nil {
		slog.Error("Failed to load AWS configuration", "error", err)
		os.Exit(1)
	}
	agentClient := agent.NewBedrockClient(bedrockagentruntime.NewFromConfig(awsCfg))

	invoker, err := agent.NewInvoker(agentClient, cfg, plane)
	if err != nil {
		slog.Error("Failed to initialize agent invoker", "error", err)
		os.Exit(1)
	}
	slog.Info("Agent invoker initialized", "region", cfg.Bedrock.Region)

	// 6. Graph driver
	driver := graph.NewDriver(invoker, checkpointService, cfg,
		graph.WithRecommendationSink(recommendationService),
		graph.WithMetrics(metrics))

	// 7. Retention cleanup loop
	cleanupService := cleanup.NewService(cfg.Retention,
		checkpointService, traceService, violationService, recommendationService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	// 8. HTTP server (non-blocking)
	httpServer := api.NewServer(driver, checkpointService, recommendationService, dbClient, registry).
		HTTPServer(":" + httpPort)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Quorum started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Drain in-flight telemetry before the database client closes.
	plane.Flush()

	slog.Info("Shutdown complete")
}

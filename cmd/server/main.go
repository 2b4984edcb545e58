package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/audio"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/config"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/metrics"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/model"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/server"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/translate"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "live-translate-sts"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("address", cfg.Server.Address),
		slog.Int("max_upload_mb", cfg.Server.MaxUploadMB),
		slog.String("model_dir", cfg.Model.Dir),
		slog.String("device", cfg.Model.Device),
		slog.Int("sample_rate", cfg.Model.SampleRate),
		slog.Bool("warmup", cfg.Model.Warmup),
		slog.String("output_format", cfg.Encoding.Format),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize model manager; the model itself loads lazily or on warmup.
	// The manager records the lifecycle metrics for both load paths.
	manager := model.NewManager(model.Config{
		Dir:          cfg.Model.Dir,
		Device:       cfg.Model.Device,
		SampleRate:   cfg.Model.SampleRate,
		MaxNewTokens: cfg.Model.MaxNewTokens,
		LibraryPath:  cfg.Model.LibraryPath,
	}, logger, appMetrics, model.NewONNXEngine)

	if cfg.Model.Warmup {
		logger.Info("Warming up translation model...")
		if err := manager.Warmup(context.Background()); err != nil {
			logger.Error("Model warmup failed; continuing with lazy load",
				slog.String("error", err.Error()))
		}
	}

	// Initialize the translation pipeline
	encoder, err := translate.NewEncoder(cfg.Encoding.Format)
	if err != nil {
		logger.Error("Failed to create response encoder", slog.String("error", err.Error()))
		os.Exit(1)
	}

	normalizer := audio.NewNormalizer(cfg.Model.SampleRate, logger)
	handler := translate.NewHandler(cfg.Server.MaxUploadBytes(), normalizer, manager, encoder, logger, appMetrics)
	logger.Info("Translation pipeline initialized",
		slog.String("output_format", encoder.Format()),
	)

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, handler, manager, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Release the model after in-flight requests have drained
	if err := manager.Close(); err != nil {
		logger.Error("Error closing model", slog.String("error", err.Error()))
	}

	// Log final statistics
	stats := manager.Stats()
	logger.Info("Final service statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("total_failures", stats.TotalFailures),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

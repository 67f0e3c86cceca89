// Package main is the entry point for the catalog gallery server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/catalog-gallery/internal/config"
	"github.com/vyrodovalexey/catalog-gallery/internal/gallery"
	"github.com/vyrodovalexey/catalog-gallery/internal/handler"
	"github.com/vyrodovalexey/catalog-gallery/internal/imaging"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
	"github.com/vyrodovalexey/catalog-gallery/internal/server"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("data_source", cfg.DataSource),
		zap.Float64("default_max_price", cfg.DefaultMaxPrice),
		zap.Int64("max_image_bytes", cfg.MaxImageBytes),
		zap.Int("render_cache_size", cfg.RenderCacheSize),
	)

	itemStore := store.NewMemoryStore()
	hub := handler.NewWebSocketHandler(logger)

	view, err := gallery.NewView(
		itemStore,
		imaging.NewEncoder(cfg.MaxImageBytes),
		hub,
		logger,
		server.GalleryOptions(cfg),
	)
	if err != nil {
		logger.Error("failed to create gallery view", zap.Error(err))
		return 1
	}

	srv := server.New(cfg, logger, itemStore, view, hub)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// The load runs once; until MarkReady the server refuses everything
	// but probes. A failure leaves the gallery empty.
	loader := store.NewLoader(nil)
	loadCatalog(context.Background(), loader, view, cfg.DataSource, logger)
	srv.MarkReady()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// catalogReplacer receives the loaded catalog.
type catalogReplacer interface {
	Replace(ctx context.Context, c model.Catalog) error
}

// loadCatalog fills the gallery from source. Errors are logged and never
// retried; an empty source skips the load.
func loadCatalog(
	ctx context.Context,
	loader *store.Loader,
	target catalogReplacer,
	source string,
	logger *zap.Logger,
) bool {
	if source == "" {
		logger.Info("no catalog data source configured, starting empty")
		return false
	}

	catalog, err := loader.Load(ctx, source)
	if err != nil {
		logger.Error("failed to load catalog", zap.String("source", source), zap.Error(err))
		return false
	}

	if err := target.Replace(ctx, catalog); err != nil {
		logger.Error("failed to install catalog", zap.String("source", source), zap.Error(err))
		return false
	}

	logger.Info("catalog loaded",
		zap.String("source", source),
		zap.Int("items", len(catalog)),
	)
	return true
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"pricerange/internal/cfg"
	"pricerange/internal/common"
	"pricerange/internal/metrics"
	"pricerange/internal/ml"
	"pricerange/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const modelAgeInterval = 30 * time.Second

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c.LogLevel, c.LogFormat)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bundle, err := ml.LoadBundle(ml.ArtifactPaths{
		ModelPath:        c.ModelPath,
		EncodingInfoPath: c.EncodingInfoPath,
		EncodersPath:     c.EncodersPath,
		MetadataPath:     c.MetadataPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load model artifacts")
	}

	// Initialize components
	m := metrics.New()
	mw := metrics.NewWrapper(m)
	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	pipeline := ml.NewPipeline(bundle, mw, c.StrictDomain)

	opts := []ml.ServerOption{
		ml.WithRequestObserver(mw),
		ml.WithRateLimit(c.RateLimit, c.RateLimitBurst),
	}
	if store != nil {
		opts = append(opts, ml.WithHistory(store))
	}
	server := ml.NewModelServer(pipeline, bundle, c.ServerPort, c.RequestTimeout, opts...)

	var wg sync.WaitGroup
	startMetricsServer(ctx, &wg, c, cancel)
	startModelServer(ctx, &wg, server, cancel)
	startModelAgeReporter(ctx, &wg, bundle, mw)

	log.Info().
		Int("port", c.ServerPort).
		Int("metrics_port", c.MetricsPort).
		Bool("strict_domain", c.StrictDomain).
		Bool("history", store != nil).
		Msg("price range service started")

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, &wg)
}

// setupLogging configures the global zerolog logger.
func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if strings.EqualFold(format, common.LogFormatConsole) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initializeStorage initializes storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataPath, 0o755); err != nil {
		log.Warn().Err(err).Str("path", c.DataPath).Msg("cannot create data directory, continuing without history")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings, cancel context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown metrics server")
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
			cancel()
		}
	}()
}

// startModelServer serves the prediction API until ctx is cancelled.
func startModelServer(ctx context.Context, wg *sync.WaitGroup, server *ml.ModelServer, cancel context.CancelFunc) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown model server")
		}
	}()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("model server failed")
			cancel()
		}
	}()
}

// startModelAgeReporter keeps the model age gauge current.
func startModelAgeReporter(ctx context.Context, wg *sync.WaitGroup, bundle *ml.Bundle, mw *metrics.MetricsWrapper) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(modelAgeInterval)
		defer ticker.Stop()

		mw.ModelAgeSet(bundle.ModelAge().Seconds())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mw.ModelAgeSet(bundle.ModelAge().Seconds())
			}
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel() // Cancel context to stop all goroutines

	// Wait for all goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}

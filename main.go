package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"sjsage522/goldpriceworker/config"
	"sjsage522/goldpriceworker/internal/crawler"
	"sjsage522/goldpriceworker/logger"
	"sjsage522/goldpriceworker/server"
	"sjsage522/goldpriceworker/services/cache"
	"sjsage522/goldpriceworker/services/metrics"
	"sjsage522/goldpriceworker/services/publisher"
	"sjsage522/goldpriceworker/services/store"
	"sjsage522/goldpriceworker/services/worker"
)

const blockCacheKey = "goldprice:source:blocked"

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("source_url", cfg.SourceURL).
		Str("data_dir", cfg.DataDir).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("Starting gold price monitor")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	rec := metrics.New(cfg.MetricsEnabled, prometheus.DefaultRegisterer)

	tables := store.NewExcelStore(cfg.DataDir)
	if err := tables.EnsureStructure(); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare price tables")
	}

	scraper := crawler.NewPageScraper(crawler.ScraperConfig{
		URL:               cfg.SourceURL,
		Timeouts:          cfg.FetchTimeouts,
		ConnectRetryDelay: cfg.ConnectRetryDelay,
		CacheKey:          blockCacheKey,
		BlockTime:         cfg.RateLimitBlock,
	}, services.Cache)
	policy := crawler.NewRetryPolicy(scraper, cfg.MaxAttempts, cfg.RetryBackoff, rec)

	w := worker.NewWorker(ctx, policy, tables, cache.NewSeriesCache(), services.Publisher, rec, cfg.RefreshInterval)

	// Refresh every weight before serving
	if err := w.RefreshAll(ctx); err != nil {
		log.Error().Err(err).Msg("Startup refresh failed")
	}

	go func() {
		if err := w.Start(); err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var gatherer prometheus.Gatherer
	if cfg.MetricsEnabled {
		gatherer = prometheus.DefaultGatherer
	}
	srv, err := server.New(w, rec, gatherer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build HTTP server")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
		close(serverDone)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// Services holds the optional external services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects to memcache and redis when they are configured.
// An unreachable memcache falls back to the in-process cache, an unreachable
// redis disables publishing.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	services.Cache = cache.NewMemoryCacheService()
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr, time.Second)
		if err := mc.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable, using in-process cache: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = mc
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s unreachable, row events disabled: %v", cfg.RedisAddr, err)
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return services
}

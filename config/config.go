package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	perrors "sjsage522/goldpriceworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	Port string

	// Source page and table location
	SourceURL string
	DataDir   string

	// Fetch policy
	FetchTimeouts     []time.Duration
	ConnectRetryDelay time.Duration
	RateLimitBlock    time.Duration

	// Completeness retry policy
	MaxAttempts  int
	RetryBackoff time.Duration

	// Periodic refresh, zero disables the loop
	RefreshInterval time.Duration

	// Redis stream publisher, empty address disables it
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache for fetch rate-limit blocks, empty address disables it
	MemcacheAddr string

	MetricsEnabled bool

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	maxAttempts, _ := strconv.Atoi(getEnv("MAX_ATTEMPTS", "3"))
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))

	return &Config{
		Port:                 getEnv("PORT", "5000"),
		SourceURL:            getEnv("SOURCE_URL", "https://galeri24.co.id/harga-emas"),
		DataDir:              getEnv("DATA_DIR", "data"),
		FetchTimeouts:        parseSeconds(getEnv("FETCH_TIMEOUTS_SECONDS", "10,15,20")),
		ConnectRetryDelay:    seconds(getEnv("CONNECT_RETRY_DELAY_SECONDS", "2")),
		RateLimitBlock:       seconds(getEnv("RATE_LIMIT_BLOCK_SECONDS", "500")),
		MaxAttempts:          maxAttempts,
		RetryBackoff:         seconds(getEnv("RETRY_BACKOFF_SECONDS", "3")),
		RefreshInterval:      seconds(getEnv("REFRESH_INTERVAL_SECONDS", "0")),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "goldprices"),
		RedisStreamMaxLength: redisMaxLength,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		MetricsEnabled:       metricsEnabled,
		Environment:          getEnv("GOLD_ENVIRONMENT", "development"),
	}
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return perrors.NewConfiguration("PORT must not be empty", nil)
	}
	if c.SourceURL == "" {
		return perrors.NewConfiguration("SOURCE_URL must not be empty", nil)
	}
	if len(c.FetchTimeouts) == 0 {
		return perrors.NewConfiguration("FETCH_TIMEOUTS_SECONDS needs at least one positive value", nil)
	}
	if c.MaxAttempts < 1 {
		return perrors.NewConfiguration("MAX_ATTEMPTS must be at least 1", nil)
	}
	if c.RetryBackoff < 0 || c.ConnectRetryDelay < 0 || c.RefreshInterval < 0 {
		return perrors.NewConfiguration("durations must not be negative", nil)
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func seconds(value string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Second
}

// parseSeconds parses a comma separated list of seconds, skipping invalid entries
func parseSeconds(value string) []time.Duration {
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		if d := seconds(part); d > 0 {
			out = append(out, d)
		}
	}
	return out
}

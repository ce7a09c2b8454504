package crawler

import (
	"context"
	"fmt"
	"io"
	"time"

	"sjsage522/goldpriceworker/helpers"
	"sjsage522/goldpriceworker/logger"
	perrors "sjsage522/goldpriceworker/pkg/errors"
	"sjsage522/goldpriceworker/services/cache"
)

// BaseCrawler fetches the source page through an escalating timeout ladder
// and honours rate-limit blocks stored in the cache
type BaseCrawler struct {
	URL               string
	Timeouts          []time.Duration
	ConnectRetryDelay time.Duration
	CacheKey          string
	CacheSvc          cache.CacheService
	BlockTime         time.Duration

	fetch FetchFunc
	sleep func(time.Duration)
}

func newBaseCrawler(cfg ScraperConfig, cacheSvc cache.CacheService) BaseCrawler {
	return BaseCrawler{
		URL:               cfg.URL,
		Timeouts:          cfg.Timeouts,
		ConnectRetryDelay: cfg.ConnectRetryDelay,
		CacheKey:          cfg.CacheKey,
		CacheSvc:          cacheSvc,
		BlockTime:         cfg.BlockTime,
		fetch:             helpers.FetchWithBrowserHeaders,
		sleep:             time.Sleep,
	}
}

// fetchWithCache walks the timeout ladder. A timeout moves on to the next
// rung, a connection error waits ConnectRetryDelay first, anything else
// (bad status, rate limiting) stops the ladder.
func (c *BaseCrawler) fetchWithCache(ctx context.Context, log *logger.Logger) (io.Reader, error) {
	if c.CacheSvc != nil && c.CacheKey != "" {
		if _, err := c.CacheSvc.Get(c.CacheKey); err == nil {
			return nil, perrors.New(perrors.ErrorTypeRateLimit, "", fmt.Sprintf("requests blocked by %s", c.CacheKey), nil)
		}
	}

	var lastErr error
	for _, timeout := range c.Timeouts {
		body, err := c.fetch(ctx, c.URL, timeout)
		if err == nil {
			log.Debug().Dur("timeout", timeout).Msg("Connected to source page")
			return body, nil
		}
		lastErr = err

		switch {
		case helpers.IsTimeout(err):
			log.Warn().Dur("timeout", timeout).Msg("Timeout, trying next rung")
		case perrors.IsRetryable(err):
			log.Warn().Err(err).Dur("delay", c.ConnectRetryDelay).Msg("Connection error, retrying")
			c.sleep(c.ConnectRetryDelay)
		default:
			if perrors.TypeOf(err) == perrors.ErrorTypeRateLimit {
				c.block(log)
			}
			return nil, err
		}
	}

	if lastErr == nil {
		return nil, perrors.NewNetwork("", "no fetch timeouts configured", nil)
	}
	return nil, fmt.Errorf("all connection attempts failed: %w", lastErr)
}

// block stores the rate-limit marker so no request is sent for BlockTime
func (c *BaseCrawler) block(log *logger.Logger) {
	if c.CacheSvc == nil || c.CacheKey == "" || c.BlockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", int(c.BlockTime/time.Second)))
	if err := c.CacheSvc.Set(c.CacheKey, value, c.BlockTime); err != nil {
		log.Error().Err(err).Str("key", c.CacheKey).Msg("Failed to store rate limit block")
	}
}

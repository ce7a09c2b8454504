package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	perrors "sjsage522/goldpriceworker/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	}

	client = resty.New()
)

// FetchWithBrowserHeaders sends a GET request with browser-like headers bounded by
// timeout and returns the body converted to UTF-8.
// Transport failures come back as network errors, status failures as status or
// rate limit errors.
func FetchWithBrowserHeaders(ctx context.Context, url string, timeout time.Duration) (io.Reader, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"User-Agent":                userAgents[rnd.Intn(len(userAgents))],
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "id,en;q=0.9,en-US;q=0.8",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
			"Upgrade-Insecure-Requests": "1",
		}).
		Get(url)
	if err != nil {
		if IsTimeout(err) {
			return nil, perrors.NewNetwork("", fmt.Sprintf("timeout after %s", timeout), err)
		}
		return nil, perrors.NewNetwork("", "connection failed", err)
	}

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode()) {
		return nil, perrors.NewRateLimit("", resp.Header().Get("Retry-After"))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, perrors.NewStatus("", resp.StatusCode())
	}

	bodyBytes := resp.Body()

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header().Get("Content-Type"))
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}

// IsTimeout reports whether err was caused by a deadline or a network timeout
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

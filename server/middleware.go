package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/goldpriceworker/logger"
	"sjsage522/goldpriceworker/services/metrics"
)

// corsMiddleware allows the dashboard API to be called from any origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestMiddleware logs every request and records its status and duration
func requestMiddleware(rec metrics.Recorder) gin.HandlerFunc {
	log := logger.ForServer()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		rec.IncRequestsTotal(endpoint, status)
		rec.ObserveRequestDuration(endpoint, duration)

		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Dur("duration", duration).
			Msg("Request handled")
	}
}

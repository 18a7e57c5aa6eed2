package telemetry

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// AccessLog logs every request and counts it by route.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		ObservePage(route, c.Request.Method, status)

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"took", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(c.Request.Context(), "http: request served", attrs...)
		default:
			slog.InfoContext(c.Request.Context(), "http: request served", attrs...)
		}
	}
}

// SecureHeaders adds standard security headers.
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

package router

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

var quietPaths = map[string]bool{
	"/health":        true,
	"/api/v1/health": true,
}

// LoggerMiddleware logs every request by route template. Successful health probes log at debug.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case quietPaths[route]:
			level = slog.LevelDebug
		}

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("path", c.Request.URL.Path),
			slog.Duration("latency", time.Since(start)),
			slog.Int("body_size", c.Writer.Size()),
			slog.String("ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, slog.String("query", q))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, slog.String("error", errs.String()))
		}

		logger.LogAttrs(c.Request.Context(), level, "HTTP request", attrs...)
	}
}

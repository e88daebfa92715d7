// Package logger builds the process slog.Logger and the gin request logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	FormatJSON = "json"
	FormatText = "text"

	// RequestIDHeader carries the request id back to the caller
	RequestIDHeader = "X-Request-ID"

	// ContextKeyRequestID is the gin context key holding the request id
	ContextKeyRequestID = "request_id"
)

// Config holds logger configuration
type Config struct {
	Level  slog.Level
	Format string
	Writer io.Writer
}

// New creates a logger writing text, or JSON when Format is "json"
func New(cfg Config) *slog.Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, FormatJSON) {
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Writer, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidFormat reports whether format names a supported output format
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatText:
		return true
	}
	return false
}

// GinMiddleware tags each request with an id and logs it when done.
// Request and response bodies are never logged.
func GinMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "request", attrs...)
		case status >= 400:
			log.WarnContext(ctx, "request", attrs...)
		default:
			log.InfoContext(ctx, "request", attrs...)
		}
	}
}

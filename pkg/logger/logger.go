// Package logger provides structured logging functionality for deploy-transact.
// This package configures and creates zap loggers with appropriate settings for
// production and development environments, including outbound HTTP request logging.
package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds the configuration for logger creation.
// This configuration controls the logging level and behavior.
type LoggerConfig struct {
	// Debug enables debug-level logging when true, otherwise uses info level
	Debug bool
}

// NewLogger creates a new structured logger with the specified configuration.
// The logger is configured for production use with JSON encoding and ISO8601 timestamps.
// Debug mode can be enabled through the configuration to include debug-level logs.
//
// Parameters:
//   - cfg: The logger configuration
//   - options: Additional zap options to apply to the logger
//
// Returns:
//   - *zap.Logger: A configured zap logger instance
//   - error: An error if the logger cannot be created
func NewLogger(cfg *LoggerConfig, options ...zap.Option) (*zap.Logger, error) {
	mergedOptions := append([]zap.Option{
		zap.WithCaller(true),
	}, options...)

	c := zap.NewProductionConfig()
	c.EncoderConfig = zap.NewProductionEncoderConfig()
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg != nil && cfg.Debug {
		c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return c.Build(mergedOptions...)
}

type httpLoggerTransport struct {
	next http.RoundTripper
	l    *zap.Logger
}

// NewHttpLoggerTransport wraps an http.RoundTripper and logs every outbound request
// with method, host, path, status and duration. Query strings and headers are not
// logged since they may carry credentials.
//
// Parameters:
//   - next: The transport performing the request; http.DefaultTransport when nil
//   - l: The zap logger to use for request logging
//
// Returns:
//   - http.RoundTripper: A transport that logs requests and delegates to next
func NewHttpLoggerTransport(next http.RoundTripper, l *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &httpLoggerTransport{next: next, l: l}
}

func (t *httpLoggerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(r)

	fields := []zap.Field{
		zap.String("system", "http"),
		zap.String("method", r.Method),
		zap.String("host", r.URL.Host),
		zap.String("path", r.URL.Path),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		t.l.Debug("http_request", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.l.Debug("http_request", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

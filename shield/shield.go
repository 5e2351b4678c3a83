// Package shield provides the HTTP middleware stack for the scribe API:
// security headers, request body caps, and per-request trace IDs.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(1 << 20) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// APIStack returns the standard middleware stack for the scribe API.
// Ordered: SecurityHeaders → MaxJSONBody → TraceID. maxBody caps the size
// of JSON request bodies; oversized requests fail at decode time with a
// MaxBytesError the handlers map to payload_too_large.
func APIStack(maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(maxBody),
		TraceID,
	}
}

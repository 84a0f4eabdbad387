// Package shield is the HTTP middleware of the forkify web front end:
// security headers, form body limits, request tracing, flash messages, HEAD
// handling and a per-client rate limit for recipe uploads.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(shield.DefaultHeaders(), 64*1024, logger) {
//	    r.Use(mw)
//	}
//	r.With(shield.NewRateLimiter(5, time.Minute).Middleware).Post("/recipes", h)
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const (
	// LoggerKey is the context key for the per-request structured logger.
	LoggerKey contextKey = "shield_logger"

	// FlashKey is the context key for flash messages.
	FlashKey contextKey = "shield_flash"
)

// FlashMessage is a one-time notification carried across a redirect.
type FlashMessage struct {
	Type    string // "success" or "error"
	Message string
}

// GetFlash retrieves the flash message from the request context.
func GetFlash(ctx context.Context) *FlashMessage {
	v, _ := ctx.Value(FlashKey).(*FlashMessage)
	return v
}

// Stack returns the middleware applied to every route, outermost first:
// HeadToGet, SecurityHeaders, MaxFormBody, TraceID, Flash.
func Stack(headers HeaderConfig, maxFormBytes int64, logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(headers),
		MaxFormBody(maxFormBytes),
		TraceID(logger),
		Flash,
	}
}

package hub

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tyrowin/blahchat/internal/metrics"
)

// Annotator maps the raw text of an inbound message to the text relayed to
// peers.
type Annotator func(raw string) string

// Limiter decides whether the next inbound message may be broadcast.
type Limiter interface {
	Allow() bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records hub activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithAnnotator replaces the transform applied to inbound text.
func WithAnnotator(a Annotator) Option {
	return func(h *Hub) {
		if a != nil {
			h.annotate = a
		}
	}
}

// WithQueueLimit bounds every outbound queue to limit pending messages.
// Messages for a recipient whose queue is full are dropped for that
// recipient only. A limit <= 0 keeps queues unbounded.
func WithQueueLimit(limit int) Option {
	return func(h *Hub) {
		h.queueLimit = limit
	}
}

// WithRateLimit allows each connection burst messages per interval. Messages
// over the limit are discarded; the connection stays open. A burst <= 0
// leaves connections unlimited.
func WithRateLimit(burst int, interval time.Duration) Option {
	return func(h *Hub) {
		if burst <= 0 || interval <= 0 {
			h.newLimiter = nil
			return
		}
		every := rate.Every(interval / time.Duration(burst))
		h.newLimiter = func() Limiter {
			return rate.NewLimiter(every, burst)
		}
	}
}

type loggerKey struct{}

// ContextWithLogger returns a context whose logger Serve uses instead of the
// hub's, typically carrying request scoped attributes.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}

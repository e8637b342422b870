package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/Tyrowin/blahchat/internal/annotate"
	"github.com/Tyrowin/blahchat/internal/metrics"
)

// Hub relays messages between all connections handed to Serve.
type Hub struct {
	ids      IDAllocator
	registry *Registry

	logger     *slog.Logger
	metrics    *metrics.Metrics
	annotate   Annotator
	queueLimit int
	newLimiter func() Limiter

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a hub ready to serve connections.
func New(opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry: NewRegistry(),
		logger:   slog.Default(),
		annotate: annotate.Annotate,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	return h.registry.Len()
}

// Serve runs the lifecycle of conn: it registers the connection, sends it a
// welcome envelope, relays its text frames to every other connection and
// deregisters it when the connection ends, ctx is cancelled or the hub shuts
// down. Serve closes conn before returning.
//
// A normal closure by the peer returns nil. Read and write failures are
// returned so the caller can log them; they never affect other connections.
func (h *Hub) Serve(ctx context.Context, conn Conn) (err error) {
	if !h.track() {
		_ = conn.Close()
		return ErrHubClosed
	}
	defer h.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopOnShutdown := context.AfterFunc(h.ctx, cancel)
	defer stopOnShutdown()
	stopOnCancel := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopOnCancel()

	id := h.ids.Next()
	log := loggerFrom(ctx, h.logger).With("conn_id", id)

	queue := NewQueue(h.queueLimit)
	if err := h.register(id, queue); err != nil {
		_ = conn.Close()
		log.Error("failed to register connection", "error", err)
		return err
	}
	h.metrics.RecordConnected()
	log.Info("connection registered", "connections", h.registry.Len())

	drained := make(chan error, 1)
	go func() {
		werr := h.drain(ctx, queue, conn)
		if werr != nil {
			cancel()
		}
		drained <- werr
	}()

	defer func() {
		h.registry.Remove(id)
		queue.Close()
		cancel()
		_ = conn.Close()
		if werr := <-drained; werr != nil && err == nil {
			err = werr
		}
		h.metrics.RecordDisconnected()

		if err != nil {
			log.Warn("connection closed", "error", err, "connections", h.registry.Len())
		} else {
			log.Info("connection closed", "connections", h.registry.Len())
		}
	}()

	return h.receive(ctx, id, conn, log)
}

// Shutdown stops accepting connections, closes every open one and waits for
// their lifecycles to finish or ctx to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.logger.Info("shutting down hub", "connections", h.registry.Len())
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timed out", "connections", h.registry.Len())
		return ctx.Err()
	}
}

func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// register queues the welcome envelope before the connection becomes visible
// to broadcasts, so it is always the first message delivered.
func (h *Hub) register(id ConnectionID, queue *Queue) error {
	welcome, err := Welcome(id).Encode()
	if err != nil {
		return fmt.Errorf("encode welcome: %w", err)
	}
	if err := queue.Push(welcome); err != nil {
		return fmt.Errorf("queue welcome: %w", err)
	}
	return h.registry.Insert(id, queue)
}

func (h *Hub) receive(ctx context.Context, id ConnectionID, conn Conn, log *slog.Logger) error {
	var limiter Limiter
	if h.newLimiter != nil {
		limiter = h.newLimiter()
	}

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		h.metrics.RecordFrame()

		switch {
		case frame.Kind != FrameText:
			h.metrics.RecordDropped(metrics.DropBinary)
			continue
		case !utf8.Valid(frame.Data):
			h.metrics.RecordDropped(metrics.DropInvalidText)
			continue
		case limiter != nil && !limiter.Allow():
			log.Warn("rate limit exceeded; discarding message")
			h.metrics.RecordDropped(metrics.DropRateLimited)
			continue
		}

		h.relay(id, string(frame.Data), log)
	}
}

func (h *Hub) relay(id ConnectionID, text string, log *slog.Logger) {
	payload, err := Relay(id, h.annotate(text)).Encode()
	if err != nil {
		log.Error("failed to encode message", "error", err)
		h.metrics.RecordDropped(metrics.DropEncodeError)
		return
	}

	res := h.registry.Broadcast(id, payload)
	h.metrics.RecordBroadcast(res.Delivered, res.Failed)
	if res.Failed > 0 {
		log.Debug("message not delivered to some peers", "delivered", res.Delivered, "failed", res.Failed)
	}
}

// drain writes queued payloads to conn in order until the queue closes, ctx
// ends or a write fails.
func (h *Hub) drain(ctx context.Context, queue *Queue, conn Conn) error {
	for {
		payload, err := queue.Pop(ctx)
		if err != nil {
			return nil
		}
		if err := conn.WriteText(payload); err != nil {
			h.metrics.RecordWriteError()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write: %w", err)
		}
	}
}

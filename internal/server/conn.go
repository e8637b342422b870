// Package server adapts gorilla WebSocket connections to the hub's Conn
// interface, handling read limits, keepalive pings and close frames.
package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/blahchat/internal/hub"
)

// wsConn implements hub.Conn over a gorilla WebSocket connection. Reads are
// bounded by the configured message size and kept alive by pong frames;
// pings are sent from a separate goroutine via WriteControl, which gorilla
// allows concurrently with the single writer.
type wsConn struct {
	conn         *websocket.Conn
	maxSize      int64
	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type connSettings struct {
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingInterval   time.Duration
}

func newWSConn(conn *websocket.Conn, s connSettings) *wsConn {
	c := &wsConn{
		conn:         conn,
		maxSize:      s.maxMessageSize,
		writeWait:    s.writeWait,
		pongWait:     s.pongWait,
		pingInterval: s.pingInterval,
		done:         make(chan struct{}),
	}
	c.setupReadConnection()
	go c.keepalive()
	return c
}

// setupReadConnection configures the read limit, read deadline and pong handler.
func (c *wsConn) setupReadConnection() {
	c.conn.SetReadLimit(c.maxSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
}

func (c *wsConn) ReadFrame() (hub.Frame, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return hub.Frame{}, c.translateReadError(err)
	}

	switch messageType {
	case websocket.TextMessage:
		return hub.Frame{Kind: hub.FrameText, Data: data}, nil
	case websocket.BinaryMessage:
		return hub.Frame{Kind: hub.FrameBinary, Data: data}, nil
	default:
		// ReadMessage only yields text or binary; kept for completeness.
		return hub.Frame{Kind: hub.FrameOther, Data: data}, nil
	}
}

// translateReadError maps the ways a peer can leave normally to io.EOF.
func (c *wsConn) translateReadError(err error) error {
	if errors.Is(err, websocket.ErrReadLimit) {
		return fmt.Errorf("message exceeded maximum size of %d bytes: %w", c.maxSize, err)
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return io.EOF
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

func (c *wsConn) WriteText(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame on a best-effort basis and closes the network
// connection. Subsequent calls return the first result.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.writeWait)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// keepalive pings the peer until the connection closes. A failed ping means
// the peer is gone, so the connection is closed to end the read loop.
func (c *wsConn) keepalive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.writeWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}

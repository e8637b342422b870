// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the chat page.
package server

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Tyrowin/blahchat/internal/hub"
)

//go:embed static/index.html
var chatPage []byte

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the connection and hands it to the
// hub, returning when the connection's lifecycle ends.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	log := s.logger.With("request_id", uuid.NewString(), "addr", r.RemoteAddr)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := newWSConn(ws, connSettings{
		maxMessageSize: s.cfg.MaxMessageSize,
		writeWait:      s.cfg.WriteWait,
		pongWait:       s.cfg.PongWait,
		pingInterval:   s.cfg.PingInterval,
	})

	ctx := hub.ContextWithLogger(r.Context(), log)
	if err := s.hub.Serve(ctx, conn); errors.Is(err, hub.ErrHubClosed) {
		log.Info("rejected connection during shutdown")
	}
}

// HealthHandler reports that the server is running and how many connections
// are registered.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "blahchat server is running! connections=%d", s.hub.ConnectionCount())
}

// ChatPageHandler serves the browser chat client. It is mounted on "/" and so
// also answers every path no other route matches.
func (s *Server) ChatPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(chatPage); err != nil {
		s.logger.Warn("error writing chat page", "error", err)
	}
}

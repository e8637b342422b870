// Package server wires HTTP handlers into a ServeMux for the blahchat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/Tyrowin/blahchat/internal/metrics"
)

// Routes returns an HTTP ServeMux with the chat page, WebSocket endpoint,
// health check and, when enabled, the metrics endpoint.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.ChatPageHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	if s.gatherer != nil {
		mux.Handle("/metrics", metrics.Handler(s.gatherer))
	}
	return mux
}

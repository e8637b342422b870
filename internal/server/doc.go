// Package server implements the HTTP and WebSocket surface of blahchat.
//
// The implementation is organized into specialized files for the WebSocket
// adapter, origin checks, routing, and HTTP handlers; the connection
// registry and broadcast logic live in the hub package.
package server

// Package hub implements the connection registry and broadcast core of the
// chat server.
//
// Every connection handed to Hub.Serve gets a fresh ConnectionID, a welcome
// envelope announcing that id, and its own outbound Queue drained by a
// dedicated goroutine. Text frames read from the connection are annotated
// and relayed to every other registered connection. The transport is
// abstracted behind Conn so the core can run over any message-framed duplex
// channel.
package hub

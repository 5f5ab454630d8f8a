// Package server provides the push-event broadcast server. Publishers POST
// events to it and subscribers hold open a streaming GET, receiving each
// published event as a chunked text/event-stream block.
package server

import "time"

// Config is the broadcast server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// KeepAlive is the interval between comment blocks written to idle
	// subscriptions so intermediaries do not time out the connection.
	// Zero disables keep-alives.
	KeepAlive time.Duration

	// ReplayLimit caps how many journaled events a reconnecting subscriber
	// can receive. Zero means no cap.
	ReplayLimit int
}

// Package eventstream bridges received push events onto an event stream
// backend (Kafka in production, no-op when disabled).
package eventstream

import "context"

// Publisher publishes received events to an event stream backend.
type Publisher interface {
	PublishReceived(ctx context.Context, event *ReceivedEvent) error
	Close() error
}

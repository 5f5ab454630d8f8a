package nop

import (
	"context"

	"github.com/pushpipe/pushpipe/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishReceived validates input and otherwise does nothing.
func (p *Publisher) PublishReceived(_ context.Context, event *eventstream.ReceivedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

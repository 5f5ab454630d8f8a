package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeReceived is emitted when a listener receives a push event.
	EventTypeReceived = "pushpipe.event.received"
)

// ReceivedEvent is a transport-neutral payload for a push event a listener
// received over its subscription.
type ReceivedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Push          PushMeta    `json:"push"`
}

// EventSource identifies the subscription the event arrived on.
type EventSource struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Scheme string `json:"scheme"`
	Path   string `json:"path,omitempty"`
}

// PushMeta captures the wire-level fields of the received push event.
type PushMeta struct {
	ID         string    `json:"id,omitempty"`
	Type       string    `json:"type,omitempty"`
	Data       string    `json:"data"`
	ReceivedAt time.Time `json:"received_at"`
}

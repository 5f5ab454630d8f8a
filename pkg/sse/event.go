// Package sse implements the text/event-stream push-event wire format: an
// incremental parser that reconstructs complete events from arbitrarily
// fragmented input, and the inverse serializer.
//
// Parsing is strict. Unlike browser-grade SSE consumers that silently skip
// unknown fields, a line that is not part of the protocol fails the whole
// parse with a structured error carrying the offending token. Resynchronizing
// mid-stream is not defined by the protocol, so callers must treat a parse
// failure as fatal for the connection.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "strings"

// Event is one decoded message from a push-event stream, delimited by a
// blank line in the wire format.
type Event struct {
	// Type is the event type from the "event:" field.
	// An empty string means no explicit type was sent.
	Type string

	// Lines holds the value of every "data:" line in arrival order.
	Lines []string

	// ID is the event ID from the "id:" field, if present.
	ID string

	// Retry is the reconnection delay in milliseconds from the "retry:"
	// field. Nil when the event carried no retry field.
	Retry *int

	// Comments holds the value of every comment line (empty field name)
	// in arrival order.
	Comments []string
}

// Option configures an Event created with New.
type Option func(*Event)

// WithType sets the event type.
func WithType(t string) Option {
	return func(e *Event) {
		e.Type = t
	}
}

// WithID sets the event ID.
func WithID(id string) Option {
	return func(e *Event) {
		e.ID = id
	}
}

// WithRetry sets the reconnection delay in milliseconds.
func WithRetry(ms int) Option {
	return func(e *Event) {
		e.Retry = &ms
	}
}

// New builds an Event from a raw payload string. The payload is split on any
// newline variant ("\r\n", "\r", or "\n") into one data line per segment, so
// a multi-line payload round-trips through serialization as multiple "data:"
// lines. An empty payload produces an event with no data lines.
func New(payload string, opts ...Option) *Event {
	e := &Event{}
	if payload != "" {
		e.Lines = splitNewlines(payload)
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Empty reports whether the event carries no application payload.
func (e *Event) Empty() bool {
	return len(e.Lines) == 0
}

// Data returns the event payload with data lines joined by "\n".
func (e *Event) Data() string {
	return strings.Join(e.Lines, "\n")
}

// splitNewlines splits s into segments on "\r\n", "\r", or "\n", without
// requiring the string to use one variant consistently.
func splitNewlines(s string) []string {
	var out []string
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\r' && c != '\n' {
			continue
		}

		out = append(out, s[start:i])
		if c == '\r' && i+1 < len(s) && s[i+1] == '\n' {
			i++
		}
		start = i + 1
	}

	return append(out, s[start:])
}

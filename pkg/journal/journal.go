// Package journal persists the events a pushpipe node has seen. The server
// uses it to replay missed events when a subscriber reconnects with a
// Last-Event-ID header, and the listener can use it to keep a local record
// of everything received.
package journal

import (
	"context"
	"time"
)

// Entry is one journaled event. Seq is assigned by the store on append and
// increases monotonically within a store.
type Entry struct {
	Seq  int64     `json:"seq"`
	ID   string    `json:"id"`
	Type string    `json:"type,omitempty"`
	Data string    `json:"data"`
	At   time.Time `json:"at"`
}

// Store defines the interface for persisting and replaying journal entries.
type Store interface {
	// Append records an entry and returns it with its assigned sequence
	// number. The entry's At field is set to the current time when zero.
	Append(ctx context.Context, entry *Entry) (*Entry, error)

	// After returns all entries recorded after the entry with the given
	// event ID, oldest first. Returns ErrUnknownID if no entry with that
	// ID exists.
	After(ctx context.Context, id string) ([]*Entry, error)

	// Recent returns up to limit most recent entries, oldest first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrUnknownID is returned by After when the reference event ID has never
// been journaled.
type ErrUnknownID struct {
	ID string
}

func (e ErrUnknownID) Error() string {
	if e.ID == "" {
		return "unknown event id"
	}

	return "unknown event id: " + e.ID
}

// Package inmemory provides an in-memory journal store for tests and for
// running a server without persistence.
package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pushpipe/pushpipe/pkg/journal"
)

// Store implements journal.Store backed by a slice.
type Store struct {
	mu      sync.RWMutex
	entries []*journal.Entry
	nextSeq int64
}

func NewStore() *Store {
	return &Store{nextSeq: 1}
}

func (s *Store) Append(_ context.Context, entry *journal.Entry) (*journal.Entry, error) {
	if entry == nil {
		return nil, errors.New("cannot append nil entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appended := *entry
	appended.Seq = s.nextSeq
	if appended.At.IsZero() {
		appended.At = time.Now().UTC()
	}
	s.nextSeq++

	s.entries = append(s.entries, &appended)

	return &appended, nil
}

func (s *Store) After(_ context.Context, id string) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Scan backwards so a re-published ID resolves to its latest occurrence.
	idx := -1
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID == id {
			idx = i
			break
		}
	}

	if idx == -1 {
		return nil, journal.ErrUnknownID{ID: id}
	}

	return copyEntries(s.entries[idx+1:]), nil
}

func (s *Store) Recent(_ context.Context, limit int) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	return copyEntries(s.entries[len(s.entries)-limit:]), nil
}

func (s *Store) Close() error {
	return nil
}

func copyEntries(entries []*journal.Entry) []*journal.Entry {
	out := make([]*journal.Entry, len(entries))
	for i, e := range entries {
		dup := *e
		out[i] = &dup
	}
	return out
}

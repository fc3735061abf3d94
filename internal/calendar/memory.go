package calendar

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pfrederiksen/library-due-dates/internal/event"
)

// MemoryStore is an in-memory Store. Dry runs list from it; tests seed it.
type MemoryStore struct {
	mu     sync.Mutex
	events []event.RemoteEvent
	nextID int
}

// NewMemoryStore creates a store seeded with events
func NewMemoryStore(events ...event.RemoteEvent) *MemoryStore {
	s := &MemoryStore{}
	for _, ev := range events {
		s.events = append(s.events, cloneEvent(ev))
	}
	return s
}

// List returns a copy of the stored events in insertion order
func (s *MemoryStore) List(ctx context.Context) ([]event.RemoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]event.RemoteEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, cloneEvent(ev))
	}
	return out, nil
}

// Insert stores desc under a generated id
func (s *MemoryStore) Insert(ctx context.Context, desc event.Descriptor) (event.RemoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return event.RemoteEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ev := event.RemoteEvent{ID: fmt.Sprintf("mem-%d", s.nextID), Descriptor: desc}
	s.events = append(s.events, ev)
	return ev, nil
}

// Delete removes the event with the given id
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.events, func(ev event.RemoteEvent) bool { return ev.ID == id })
	if idx < 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	s.events = slices.Delete(s.events, idx, idx+1)
	return nil
}

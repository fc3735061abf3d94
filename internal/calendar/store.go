package calendar

import (
	"context"
	"errors"
	"maps"

	"github.com/pfrederiksen/library-due-dates/internal/event"
)

// DefaultName is the calendar that holds due-date events
const DefaultName = "OSLRI Due Dates"

// ErrNotFound is returned when deleting an id the backend does not hold
var ErrNotFound = errors.New("event not found")

// ErrReadOnly is returned by Insert and Delete on a read-only store
var ErrReadOnly = errors.New("calendar opened read-only")

// Store is a calendar backend holding one dedicated calendar
type Store interface {
	// List returns every event in the calendar in backend order
	List(ctx context.Context) ([]event.RemoteEvent, error)
	// Insert creates an event and returns it with its backend id
	Insert(ctx context.Context, desc event.Descriptor) (event.RemoteEvent, error)
	// Delete removes the event with the given backend id
	Delete(ctx context.Context, id string) error
}

func cloneEvent(ev event.RemoteEvent) event.RemoteEvent {
	ev.Extra = maps.Clone(ev.Extra)
	return ev
}

// exclusiveEnd converts an inclusive last day to the day after it
func exclusiveEnd(desc event.Descriptor) event.Descriptor {
	desc.End = desc.End.AddDays(1)
	return desc
}

// inclusiveEnd undoes exclusiveEnd. Single-day and malformed ranges collapse
// to End == Start.
func inclusiveEnd(desc event.Descriptor) event.Descriptor {
	if desc.End.IsZero() {
		desc.End = desc.Start
		return desc
	}
	desc.End = desc.End.AddDays(-1)
	if desc.End.Before(desc.Start) {
		desc.End = desc.Start
	}
	return desc
}

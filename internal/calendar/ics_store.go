package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
)

// ICSStore keeps the calendar in a local .ics file that calendar apps can
// subscribe to. The file is created on first use.
type ICSStore struct {
	path string
	name string

	// ReadOnly makes a missing file read as an empty calendar and refuses
	// Insert and Delete
	ReadOnly bool

	mu    sync.Mutex
	newID func() string
	now   func() time.Time
}

// NewICSStore creates a store backed by the file at path
func NewICSStore(path, name string) *ICSStore {
	if name == "" {
		name = DefaultName
	}
	return &ICSStore{
		path: path,
		name: name,
		newID: func() string {
			return uuid.NewString() + "@" + uidDomain
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// List returns the events in file order, creating an empty calendar file
// if none exists yet and the store is writable.
func (s *ICSStore) List(ctx context.Context) ([]event.RemoteEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events, created, err := s.load()
	if err != nil {
		return nil, err
	}
	if created && !s.ReadOnly {
		if err := s.save(events); err != nil {
			return nil, err
		}
		logger.Info("Created calendar file", logger.Fields{
			"path":     s.path,
			"calendar": s.name,
		})
	}
	return events, nil
}

// Insert appends an event with a fresh UID
func (s *ICSStore) Insert(ctx context.Context, desc event.Descriptor) (event.RemoteEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return event.RemoteEvent{}, err
	}
	if s.ReadOnly {
		return event.RemoteEvent{}, ErrReadOnly
	}

	events, _, err := s.load()
	if err != nil {
		return event.RemoteEvent{}, err
	}

	ev := event.RemoteEvent{ID: s.newID(), Descriptor: desc}
	events = append(events, ev)
	if err := s.save(events); err != nil {
		return event.RemoteEvent{}, err
	}
	return ev, nil
}

// Delete removes the event with the given UID
func (s *ICSStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ReadOnly {
		return ErrReadOnly
	}

	events, _, err := s.load()
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(events, func(ev event.RemoteEvent) bool { return ev.ID == id })
	if idx < 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}

	return s.save(slices.Delete(events, idx, idx+1))
}

// load reads the file. A missing file yields no events and created=true.
func (s *ICSStore) load() (events []event.RemoteEvent, created bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []event.RemoteEvent{}, true, nil
		}
		return nil, false, fmt.Errorf("reading calendar file: %w", err)
	}

	_, events, err = Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return events, false, nil
}

// save rewrites the whole file through a temp file and rename
func (s *ICSStore) save(events []event.RemoteEvent) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating calendar directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".due-dates-*.ics")
	if err != nil {
		return fmt.Errorf("creating temp calendar: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := newCalendar(s.name, events, s.now()).SerializeTo(tmp, ical.WithNewLineWindows); err != nil {
		tmp.Close()
		return fmt.Errorf("writing calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting calendar permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing calendar file: %w", err)
	}
	return nil
}

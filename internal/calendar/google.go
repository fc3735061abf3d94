package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
)

const (
	googleDateLayout = "2006-01-02"
	// googlePageSize is the largest page Events.List accepts
	googlePageSize   = 2500
	statusCancelled  = "cancelled"
)

// GoogleStore keeps events in a Google calendar looked up by name.
// The calendar is created in the account when no calendar of that name
// exists.
type GoogleStore struct {
	svc  *gcal.Service
	name string

	// ReadOnly makes a missing calendar read as empty instead of creating
	// it, and refuses Insert and Delete
	ReadOnly bool

	mu         sync.Mutex
	calendarID string
}

// NewGoogleStore creates a store for the calendar called name.
// opts usually carry option.WithCredentialsFile.
func NewGoogleStore(ctx context.Context, name string, opts ...option.ClientOption) (*GoogleStore, error) {
	if name == "" {
		name = DefaultName
	}

	opts = append([]option.ClientOption{option.WithScopes(gcal.CalendarScope)}, opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}

	return &GoogleStore{svc: svc, name: name}, nil
}

// CalendarID returns the id of the named calendar, creating it if needed.
// The result is cached for the life of the store. A read-only store
// returns "" when the calendar does not exist.
func (s *GoogleStore) CalendarID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calendarID != "" {
		return s.calendarID, nil
	}

	var found string
	err := s.svc.CalendarList.List().Context(ctx).Pages(ctx, func(page *gcal.CalendarList) error {
		for _, entry := range page.Items {
			if entry.Summary == s.name {
				found = entry.Id
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return "", fmt.Errorf("listing calendars: %w", err)
	}

	if found == "" && s.ReadOnly {
		logger.Info("Calendar does not exist yet", logger.Fields{"calendar": s.name})
		return "", nil
	}

	if found == "" {
		created, err := s.svc.Calendars.Insert(&gcal.Calendar{Summary: s.name}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("creating calendar %q: %w", s.name, err)
		}
		found = created.Id
		logger.Info("Created calendar", logger.Fields{
			"calendar":    s.name,
			"calendar_id": found,
		})
	}

	logger.Info("Using calendar", logger.Fields{
		"calendar":    s.name,
		"calendar_id": found,
	})

	s.calendarID = found
	return found, nil
}

// List returns the calendar's events, skipping cancelled ones
func (s *GoogleStore) List(ctx context.Context) ([]event.RemoteEvent, error) {
	calID, err := s.CalendarID(ctx)
	if err != nil {
		return nil, err
	}
	if calID == "" {
		return []event.RemoteEvent{}, nil
	}

	var events []event.RemoteEvent
	call := s.svc.Events.List(calID).ShowDeleted(false).MaxResults(googlePageSize).Context(ctx)
	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == statusCancelled {
				continue
			}
			ev, err := fromGoogleEvent(item)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	return events, nil
}

// Insert creates an all-day event
func (s *GoogleStore) Insert(ctx context.Context, desc event.Descriptor) (event.RemoteEvent, error) {
	if s.ReadOnly {
		return event.RemoteEvent{}, ErrReadOnly
	}
	calID, err := s.CalendarID(ctx)
	if err != nil {
		return event.RemoteEvent{}, err
	}

	created, err := s.svc.Events.Insert(calID, toGoogleEvent(desc)).Context(ctx).Do()
	if err != nil {
		return event.RemoteEvent{}, fmt.Errorf("inserting event %q: %w", desc.Summary, err)
	}

	ev, err := fromGoogleEvent(created)
	if err != nil {
		return event.RemoteEvent{}, err
	}
	return ev, nil
}

// Delete removes an event by id
func (s *GoogleStore) Delete(ctx context.Context, id string) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	calID, err := s.CalendarID(ctx)
	if err != nil {
		return err
	}

	if err := s.svc.Events.Delete(calID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	return nil
}

var errStopPaging = errors.New("stop paging")

func toGoogleEvent(desc event.Descriptor) *gcal.Event {
	desc = exclusiveEnd(desc)
	return &gcal.Event{
		Summary:      desc.Summary,
		Description:  desc.Description,
		Start:        &gcal.EventDateTime{Date: desc.Start.String()},
		End:          &gcal.EventDateTime{Date: desc.End.String()},
		Transparency: "transparent",
	}
}

func fromGoogleEvent(item *gcal.Event) (event.RemoteEvent, error) {
	start, err := googleDate(item.Start)
	if err != nil {
		return event.RemoteEvent{}, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	end, err := googleDate(item.End)
	if err != nil {
		return event.RemoteEvent{}, fmt.Errorf("event %s end: %w", item.Id, err)
	}

	ev := event.RemoteEvent{
		ID: item.Id,
		Descriptor: inclusiveEnd(event.Descriptor{
			Summary:     item.Summary,
			Start:       start,
			End:         end,
			Description: item.Description,
		}),
	}

	extra := map[string]string{}
	if item.Etag != "" {
		extra["etag"] = item.Etag
	}
	if item.HtmlLink != "" {
		extra["html_link"] = item.HtmlLink
	}
	if item.Status != "" {
		extra["status"] = item.Status
	}
	if len(extra) > 0 {
		ev.Extra = extra
	}

	return ev, nil
}

// googleDate reads an all-day date, or the local date of a timed event
func googleDate(dt *gcal.EventDateTime) (loan.Date, error) {
	switch {
	case dt == nil:
		return loan.Date{}, nil
	case dt.Date != "":
		t, err := time.Parse(googleDateLayout, dt.Date)
		if err != nil {
			return loan.Date{}, err
		}
		return loan.DateOf(t), nil
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return loan.Date{}, err
		}
		return loan.DateOf(t), nil
	default:
		return loan.Date{}, nil
	}
}

package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
)

const (
	// productService names this program in PRODID
	productService = "library-due-dates"
	// uidDomain qualifies generated UIDs
	uidDomain = "library-due-dates"
)

// Feed renders desired events as an ICS feed with UIDs derived from
// event content, so re-exporting unchanged loans keeps the same UIDs.
func Feed(name string, descs []event.Descriptor) string {
	events := make([]event.RemoteEvent, 0, len(descs))
	for _, d := range descs {
		events = append(events, event.RemoteEvent{
			ID:         d.Key() + "@" + uidDomain,
			Descriptor: d,
		})
	}
	return Encode(name, events)
}

// Encode generates an iCalendar document holding the given events as
// all-day, transparent VEVENTs. An empty name omits X-WR-CALNAME.
func Encode(name string, events []event.RemoteEvent) string {
	return newCalendar(name, events, time.Now().UTC()).Serialize(ical.WithNewLineWindows)
}

func newCalendar(name string, events []event.RemoteEvent, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendarFor(productService)
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		desc := exclusiveEnd(ev.Descriptor)

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetAllDayStartAt(desc.Start.Time())
		ve.SetAllDayEndAt(desc.End.Time())
		ve.SetSummary(desc.Summary)
		ve.SetDescription(desc.Description)
		ve.SetTimeTransparency(ical.TransparencyTransparent)
	}

	return cal
}

// Decode parses an iCalendar document and returns its name and events
func Decode(r io.Reader) (string, []event.RemoteEvent, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return "", nil, fmt.Errorf("parsing calendar: %w", err)
	}

	var name string
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ical.PropertyXWRCalName) {
			name = p.Value
			break
		}
	}

	vevents := cal.Events()
	events := make([]event.RemoteEvent, 0, len(vevents))
	for _, ve := range vevents {
		ev, err := decodeEvent(ve)
		if err != nil {
			return "", nil, err
		}
		events = append(events, ev)
	}

	return name, events, nil
}

func decodeEvent(ve *ical.VEvent) (event.RemoteEvent, error) {
	ev := event.RemoteEvent{ID: ve.Id()}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}

	start, err := ve.GetAllDayStartAt()
	if err != nil {
		return event.RemoteEvent{}, fmt.Errorf("event %s: reading DTSTART: %w", ev.ID, err)
	}
	ev.Start = loan.DateOf(start)

	// DTEND is optional; absent means a single day
	if end, err := ve.GetAllDayEndAt(); err == nil {
		ev.End = loan.DateOf(end)
	}
	ev.Descriptor = inclusiveEnd(ev.Descriptor)

	if stamp, err := ve.GetDtStampTime(); err == nil {
		ev.Extra = map[string]string{"dtstamp": stamp.UTC().Format(time.RFC3339)}
	}

	return ev, nil
}

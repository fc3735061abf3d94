package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
)

// fakeGoogle serves the handful of Calendar API calls GoogleStore makes.
// Event pages hold one item each so paging is always exercised.
type fakeGoogle struct {
	mu        sync.Mutex
	calendars []*gcal.CalendarListEntry
	events    map[string][]*gcal.Event
	nextID    int
	created   int
}

func newFakeGoogle(t *testing.T, calendars ...*gcal.CalendarListEntry) (*fakeGoogle, *GoogleStore) {
	t.Helper()

	f := &fakeGoogle{calendars: calendars, events: map[string][]*gcal.Event{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", f.listCalendars)
	mux.HandleFunc("POST /calendars", f.insertCalendar)
	mux.HandleFunc("GET /calendars/{cal}/events", f.listEvents)
	mux.HandleFunc("POST /calendars/{cal}/events", f.insertEvent)
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", f.deleteEvent)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := NewGoogleStore(context.Background(), DefaultName,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	return f, store
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGoogle) listCalendars(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, &gcal.CalendarList{Items: f.calendars})
}

func (f *fakeGoogle) insertCalendar(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var c gcal.Calendar
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.created++
	c.Id = fmt.Sprintf("created-%d", f.created)
	f.calendars = append(f.calendars, &gcal.CalendarListEntry{Id: c.Id, Summary: c.Summary})
	writeJSON(w, &c)
}

func (f *fakeGoogle) listEvents(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.events[r.PathValue("cal")]
	page := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		page, _ = strconv.Atoi(tok)
	}

	resp := &gcal.Events{Items: []*gcal.Event{}}
	if page < len(items) {
		resp.Items = append(resp.Items, items[page])
	}
	if page+1 < len(items) {
		resp.NextPageToken = strconv.Itoa(page + 1)
	}
	writeJSON(w, resp)
}

func (f *fakeGoogle) insertEvent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ev gcal.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.nextID++
	ev.Id = fmt.Sprintf("g%d", f.nextID)
	ev.Etag = fmt.Sprintf(`"etag-%d"`, f.nextID)
	ev.HtmlLink = "https://calendar.example/event?eid=" + ev.Id
	ev.Status = "confirmed"

	cal := r.PathValue("cal")
	f.events[cal] = append(f.events[cal], &ev)
	writeJSON(w, &ev)
}

func (f *fakeGoogle) deleteEvent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, id := r.PathValue("cal"), r.PathValue("id")
	for i, ev := range f.events[cal] {
		if ev.Id == id {
			f.events[cal] = append(f.events[cal][:i], f.events[cal][i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
}

func TestGoogleStore_FindsExistingCalendar(t *testing.T) {
	f, store := newFakeGoogle(t,
		&gcal.CalendarListEntry{Id: "personal", Summary: "Personal"},
		&gcal.CalendarListEntry{Id: "loans", Summary: DefaultName},
	)

	id, err := store.CalendarID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loans", id)
	assert.Zero(t, f.created, "existing calendar should not be recreated")
}

func TestGoogleStore_CreatesCalendar(t *testing.T) {
	f, store := newFakeGoogle(t, &gcal.CalendarListEntry{Id: "personal", Summary: "Personal"})
	ctx := context.Background()

	id, err := store.CalendarID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "created-1", id)

	again, err := store.CalendarID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, f.created, "calendar id should be cached")
}

func TestGoogleStore_ReadOnlyMissingCalendar(t *testing.T) {
	f, store := newFakeGoogle(t, &gcal.CalendarListEntry{Id: "personal", Summary: "Personal"})
	store.ReadOnly = true
	ctx := context.Background()

	events, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, f.created, "read-only store should not create the calendar")

	_, err = store.Insert(ctx, dueEvent("", "Dune", loan.NewDate(2024, 1, 31), "Renewed 1 time").Descriptor)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, store.Delete(ctx, "g1"), ErrReadOnly)
}

func TestGoogleStore_InsertListDelete(t *testing.T) {
	f, store := newFakeGoogle(t, &gcal.CalendarListEntry{Id: "loans", Summary: DefaultName})
	ctx := context.Background()

	dune := dueEvent("", "Dune", loan.NewDate(2024, 1, 31), "Renewed 1 time").Descriptor
	emma := dueEvent("", "Emma", loan.NewDate(2024, 2, 5), "Renewed 0 times").Descriptor

	inserted, err := store.Insert(ctx, dune)
	require.NoError(t, err)
	assert.Equal(t, "g1", inserted.ID)
	assert.Equal(t, dune, inserted.Descriptor)
	assert.Equal(t, `"etag-1"`, inserted.Extra["etag"])

	// Stored with an exclusive end date
	stored := f.events["loans"][0]
	assert.Equal(t, "2024-01-31", stored.Start.Date)
	assert.Equal(t, "2024-02-01", stored.End.Date)
	assert.Equal(t, "transparent", stored.Transparency)

	_, err = store.Insert(ctx, emma)
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)

	want := []event.RemoteEvent{
		{ID: "g1", Descriptor: dune},
		{ID: "g2", Descriptor: emma},
	}
	if diff := cmp.Diff(want, events, ignoreExtra); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "https://calendar.example/event?eid=g2", events[1].Extra["html_link"])

	require.NoError(t, store.Delete(ctx, "g1"))
	assert.Error(t, store.Delete(ctx, "g1"))

	events, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "g2", events[0].ID)
}

func TestGoogleStore_ListConvertsForeignEvents(t *testing.T) {
	f, store := newFakeGoogle(t, &gcal.CalendarListEntry{Id: "loans", Summary: DefaultName})
	f.events["loans"] = []*gcal.Event{
		{
			Id:      "cancelled",
			Status:  "cancelled",
			Summary: "Due: Gone",
			Start:   &gcal.EventDateTime{Date: "2024-01-10"},
			End:     &gcal.EventDateTime{Date: "2024-01-11"},
		},
		{
			Id:          "timed",
			Status:      "confirmed",
			Summary:     "Pick up holds",
			Description: "Front desk",
			Start:       &gcal.EventDateTime{DateTime: "2024-01-12T10:00:00-05:00"},
			End:         &gcal.EventDateTime{DateTime: "2024-01-12T11:00:00-05:00"},
		},
		{
			Id:      "multi",
			Summary: "Book sale",
			Start:   &gcal.EventDateTime{Date: "2024-01-15"},
			End:     &gcal.EventDateTime{Date: "2024-01-18"},
		},
	}

	events, err := store.List(context.Background())
	require.NoError(t, err)

	want := []event.RemoteEvent{
		{ID: "timed", Descriptor: event.Descriptor{
			Summary:     "Pick up holds",
			Start:       loan.NewDate(2024, 1, 12),
			End:         loan.NewDate(2024, 1, 12),
			Description: "Front desk",
		}},
		{ID: "multi", Descriptor: event.Descriptor{
			Summary: "Book sale",
			Start:   loan.NewDate(2024, 1, 15),
			End:     loan.NewDate(2024, 1, 17),
		}},
	}
	if diff := cmp.Diff(want, events, ignoreExtra); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestGoogleDate(t *testing.T) {
	tests := []struct {
		name    string
		in      *gcal.EventDateTime
		want    loan.Date
		wantErr bool
	}{
		{"nil", nil, loan.Date{}, false},
		{"all day", &gcal.EventDateTime{Date: "2024-03-01"}, loan.NewDate(2024, 3, 1), false},
		{"timed keeps its own offset", &gcal.EventDateTime{DateTime: "2024-03-01T23:30:00-08:00"}, loan.NewDate(2024, 3, 1), false},
		{"bad date", &gcal.EventDateTime{Date: "03/01/2024"}, loan.Date{}, true},
		{"empty", &gcal.EventDateTime{}, loan.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := googleDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("googleDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("googleDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

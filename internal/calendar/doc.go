// Package calendar stores due-date events in a calendar backend.
//
// Store is the narrow interface the sync driver needs: list the events of
// the dedicated calendar, insert one, delete one by id. Three backends
// implement it:
//
//   - ICSStore keeps the calendar in a local .ics file
//   - GoogleStore talks to the Google Calendar API
//   - MemoryStore keeps events in memory for dry runs and tests
//
// All-day events are stored with an exclusive end date (the day after the
// due date) and mapped back to End == Start on read.
package calendar

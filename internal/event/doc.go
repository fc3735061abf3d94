// Package event provides calendar event descriptors for loans and the reconciliation
// of desired events against the events already in the calendar.
//
// A Descriptor is the backend-agnostic form of one all-day "Due:" event. Reconcile
// compares descriptors with the calendar's current events on exactly four fields
// (summary, start, end, description) using a deterministic SHA1 content key, and
// returns the insertions and deletions needed to bring the calendar up to date.
package event

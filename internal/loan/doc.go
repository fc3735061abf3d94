// Package loan turns scraped rows from a library patron account into typed loan records.
//
// Each checked-out item arrives as a RawItem holding the title markup text and the
// status column text. Extract normalizes these into Records: the short title, the
// due date parsed from an MM-DD-YY token, and the renewal note used as the calendar
// event description.
package loan

// Package storage provides JSON-based persistence for sync run reports.
//
// The storage package keeps the report of the most recent sync in the data
// directory (last_run.json) so the status command can show it later. The
// default storage location is ~/.local/share/library-due-dates/.
package storage

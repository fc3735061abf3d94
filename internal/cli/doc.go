// Package cli implements the command-line interface for library-due-dates.
//
// The cli package provides the Cobra-based CLI: sync (the default action)
// reconciles the due-date calendar with the patron account, loans lists
// what is checked out, export prints the desired events as an ICS feed,
// status shows the last recorded sync and config init writes a starter
// configuration. Output is text or JSON.
package cli

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
	"github.com/pfrederiksen/library-due-dates/internal/runner"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteReport writes a sync report in the specified format
func WriteReport(w io.Writer, report *runner.Report, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeReportText(w, report, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteLoans writes loan records in the specified format
func WriteLoans(w io.Writer, records []loan.Record, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if records == nil {
			records = []loan.Record{}
		}
		return writeJSON(w, records)
	case FormatText:
		return writeLoansText(w, records)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteStatus writes the last recorded sync in the specified format
func WriteStatus(w io.Writer, report *runner.Report, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		state := "ok"
		if !report.OK() {
			state = "failed"
		}
		fmt.Fprintf(w, "Last sync: %s (%s, took %s)\n",
			report.FinishedAt.Format(time.RFC3339), state,
			report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
		return writeReportText(w, report, false)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeReportText outputs a report as human-readable text
func writeReportText(w io.Writer, report *runner.Report, verbose bool) error {
	header := report.Calendar
	if header == "" {
		header = "calendar"
	}
	if report.DryRun {
		header += " (dry run)"
	}
	fmt.Fprintf(w, "Calendar: %s\n", header)

	if report.Error != "" && len(report.Failures) == 0 {
		fmt.Fprintf(w, "\nSync failed: %s\n", report.Error)
		return nil
	}

	fmt.Fprintf(w, "Loans: %d\n", len(report.Loans))
	if verbose {
		for _, rec := range report.Loans {
			fmt.Fprintf(w, "  %s\n", formatLoan(rec))
		}
	}

	addLabel, removeLabel := "Added", "Removed"
	if report.DryRun {
		addLabel, removeLabel = "Would add", "Would remove"
	}

	if len(report.Added) == 0 && len(report.Removed) == 0 && len(report.Failures) == 0 {
		fmt.Fprintln(w, "\nCalendar is up to date.")
		return nil
	}

	writeEvents(w, addLabel, "+", report.Added, verbose)
	writeEvents(w, removeLabel, "-", report.Removed, verbose)

	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "\nFailed (%d):\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  ! %s %s: %s\n", f.Action, f.Summary, f.Error)
		}
	}

	fmt.Fprintf(w, "\nUnchanged: %d\n", report.Summary.Unchanged)
	return nil
}

func writeEvents(w io.Writer, label, marker string, events []event.RemoteEvent, verbose bool) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", label, len(events))
	for _, ev := range events {
		fmt.Fprintf(w, "  %s %s  %s\n", marker, ev.Start, ev.Summary)
		if verbose {
			if ev.ID != "" {
				fmt.Fprintf(w, "       ID: %s\n", ev.ID)
			}
			fmt.Fprintf(w, "       %s\n", ev.Description)
		}
	}
}

// writeLoansText outputs loans as one line each
func writeLoansText(w io.Writer, records []loan.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No items checked out.")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintln(w, formatLoan(rec))
	}

	noun := "items"
	if len(records) == 1 {
		noun = "item"
	}
	fmt.Fprintf(w, "\nTotal: %d %s\n", len(records), noun)
	return nil
}

func formatLoan(rec loan.Record) string {
	return fmt.Sprintf("%s  %s (%s)", rec.DueDate, rec.Title, rec.RenewalNote)
}

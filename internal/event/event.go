package event

import (
	"crypto/sha1"
	"fmt"

	"github.com/pfrederiksen/library-due-dates/internal/loan"
)

// SummaryPrefix starts the summary of every due-date event
const SummaryPrefix = "Due: "

// Descriptor is the canonical form of a due-date calendar event
type Descriptor struct {
	Summary     string    `json:"summary"`
	Start       loan.Date `json:"start_date"`
	End         loan.Date `json:"end_date"`
	Description string    `json:"description"`
}

// RemoteEvent is an event as stored by a calendar backend.
// ID and Extra belong to the backend and never take part in matching.
type RemoteEvent struct {
	ID string `json:"id"`
	Descriptor
	Extra map[string]string `json:"extra,omitempty"`
}

// FromLoan builds the all-day event for a loan record
func FromLoan(rec loan.Record) Descriptor {
	return Descriptor{
		Summary:     SummaryPrefix + rec.Title,
		Start:       rec.DueDate,
		End:         rec.DueDate,
		Description: rec.RenewalNote,
	}
}

// FromLoans builds descriptors for every record, keeping order
func FromLoans(records []loan.Record) []Descriptor {
	descs := make([]Descriptor, 0, len(records))
	for _, rec := range records {
		descs = append(descs, FromLoan(rec))
	}
	return descs
}

// Key creates a deterministic content key over the four compared fields.
// Two descriptors have the same key exactly when all four fields are equal.
func (d Descriptor) Key() string {
	h := sha1.New()
	// Length-prefix the strings so field boundaries can't be forged by content
	fmt.Fprintf(h, "%d:%s|%s|%s|%d:%s", len(d.Summary), d.Summary, d.Start, d.End, len(d.Description), d.Description)
	return fmt.Sprintf("%x", h.Sum(nil))
}

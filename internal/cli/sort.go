package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/library-due-dates/internal/loan"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDue   SortOrder = "due"
	SortByTitle SortOrder = "title"
	SortNone    SortOrder = "none"
)

// parseSortOrder validates --sort
func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByDue, SortByTitle, SortNone:
		return order, nil
	case "":
		return SortByDue, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be 'due', 'title' or 'none')", s)
}

// sortLoans sorts loan records in place. SortNone keeps page order.
func sortLoans(records []loan.Record, order SortOrder) {
	switch order {
	case SortByDue:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDue(records[i], records[j])
		})
	case SortByTitle:
		sort.SliceStable(records, func(i, j int) bool {
			ti, tj := strings.ToLower(records[i].Title), strings.ToLower(records[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by due date
			return records[i].DueDate.Before(records[j].DueDate)
		})
	}
}

// compareByDue compares two loans by due date
// Returns true if loan i should come before loan j
func compareByDue(i, j loan.Record) bool {
	if i.DueDate != j.DueDate {
		return i.DueDate.Before(j.DueDate)
	}
	// Same day, sort by title
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}

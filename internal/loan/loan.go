package loan

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultRenewalNote is used when the status text never mentions a renewal.
// It matches the site's own phrasing for unrenewed items.
const DefaultRenewalNote = "Renewed 0 times"

const renewedMarker = "Renewed"

// titleDelimiter matches the separators Sierra places between the title proper
// and its subtitle or statement of responsibility.
var titleDelimiter = regexp.MustCompile(` / | : `)

// RawItem is one row scraped from the checked-out items table
type RawItem struct {
	FullTitle  string `json:"full_title"`
	StatusText string `json:"status_text"`
}

// Record is the normalized form of one checked-out item
type Record struct {
	Title       string `json:"title"`
	DueDate     Date   `json:"due_date"`
	RenewalNote string `json:"renewal_note"`
}

// Extract converts raw rows into loan records, preserving input order.
// Duplicate rows produce duplicate records. The first malformed row aborts
// extraction with a *ParseError or *MissingDueDateError.
func Extract(items []RawItem) ([]Record, error) {
	records := make([]Record, 0, len(items))

	for i, item := range items {
		rec, err := ExtractOne(item)
		if err != nil {
			return nil, withIndex(err, i)
		}
		records = append(records, rec)
	}

	return records, nil
}

// ExtractOne converts a single raw row into a loan record
func ExtractOne(item RawItem) (Record, error) {
	if !utf8.ValidString(item.FullTitle) {
		return Record{}, &ParseError{Index: -1, Field: "full_title", Reason: "not valid UTF-8 text"}
	}
	if !utf8.ValidString(item.StatusText) {
		return Record{}, &ParseError{Index: -1, Field: "status_text", Reason: "not valid UTF-8 text"}
	}

	due, err := ParseDueDate(item.StatusText)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Title:       ShortTitle(item.FullTitle),
		DueDate:     due,
		RenewalNote: RenewalNote(item.StatusText),
	}, nil
}

// ShortTitle returns the title up to the first " / " or " : ".
// A title without either delimiter is returned whole.
func ShortTitle(fullTitle string) string {
	return titleDelimiter.Split(fullTitle, 2)[0]
}

// RenewalNote returns the status text from the first "Renewed" onward,
// or DefaultRenewalNote when the item was never renewed.
func RenewalNote(status string) string {
	idx := strings.Index(status, renewedMarker)
	if idx == -1 {
		return DefaultRenewalNote
	}
	return status[idx:]
}

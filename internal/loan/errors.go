package loan

import (
	"errors"
	"fmt"
)

// MissingDueDateError reports a status text without a parseable due date
type MissingDueDateError struct {
	Index  int // row index, -1 when unknown
	Status string
	Err    error // underlying date parse failure, nil when no token was found
}

func (e *MissingDueDateError) Error() string {
	msg := fmt.Sprintf("no due date in status %q", e.Status)
	if e.Index >= 0 {
		msg = fmt.Sprintf("item %d: %s", e.Index, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingDueDateError) Unwrap() error {
	return e.Err
}

// ParseError reports a structurally invalid row
type ParseError struct {
	Index  int // row index, -1 when unknown
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("item %d: invalid %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// withIndex stamps the row index onto extraction errors
func withIndex(err error, idx int) error {
	var missing *MissingDueDateError
	if errors.As(err, &missing) {
		missing.Index = idx
		return missing
	}
	var parse *ParseError
	if errors.As(err, &parse) {
		parse.Index = idx
		return parse
	}
	return fmt.Errorf("item %d: %w", idx, err)
}

package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when the barcode or PIN is empty
	ErrMissingCredentials = errors.New("missing library credentials")

	// ErrLoginFailed is returned when the catalog shows the login form again after submitting it
	ErrLoginFailed = errors.New("login failed")

	// ErrUnexpectedPage is returned when a page does not look like the patron pages we expect
	ErrUnexpectedPage = errors.New("unexpected page")
)

// StatusError reports a non-200 response from the catalog
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
)

// Selectors for the Sierra patron checkout table
const (
	RowSelector    = "#checkout_form tr.patFuncEntry"
	TitleSelector  = ".patFuncTitleMain"
	StatusSelector = ".patFuncStatus"
)

// ParseItems extracts the checked-out rows from a patron items page
func ParseItems(r io.Reader) ([]loan.RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return parseDocument(doc)
}

func parseDocument(doc *goquery.Document) ([]loan.RawItem, error) {
	items := make([]loan.RawItem, 0)
	var parseErr error

	doc.Find(RowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		title := row.Find(TitleSelector).First()
		if title.Length() == 0 {
			parseErr = &loan.ParseError{Index: i, Field: "full_title", Reason: "row has no " + TitleSelector + " cell"}
			return false
		}

		status := row.Find(StatusSelector).First()
		if status.Length() == 0 {
			parseErr = &loan.ParseError{Index: i, Field: "status_text", Reason: "row has no " + StatusSelector + " cell"}
			return false
		}

		items = append(items, loan.RawItem{
			FullTitle:  collapseSpace(title.Text()),
			StatusText: collapseSpace(status.Text()),
		})
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return items, nil
}

// collapseSpace trims and folds runs of whitespace the way a browser renders text
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

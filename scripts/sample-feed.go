package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pfrederiksen/library-due-dates/internal/calendar"
	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
)

func main() {
	// Sample rows as they appear on the checkouts page, due in one and two weeks
	soon := time.Now().AddDate(0, 0, 7)
	later := time.Now().AddDate(0, 0, 14)

	items := []loan.RawItem{
		{
			FullTitle:  "Dune / Frank Herbert.",
			StatusText: fmt.Sprintf("DUE %s Renewed 1 time", soon.Format("01-02-06")),
		},
		{
			FullTitle:  "Salt, fat, acid, heat : mastering the elements of good cooking / Samin Nosrat.",
			StatusText: fmt.Sprintf("DUE %s", later.Format("01-02-06")),
		},
	}

	records, err := loan.Extract(items)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting loans: %v\n", err)
		os.Exit(1)
	}

	icsContent := calendar.Feed(calendar.DefaultName, event.FromLoans(records))

	// Write to file (owner read/write only)
	filename := "sample-due-dates.ics"
	if err := os.WriteFile(filename, []byte(icsContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated calendar file: %s\n\n", filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Println(icsContent)
}

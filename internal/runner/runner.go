package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/library-due-dates/internal/calendar"
	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
	"github.com/pfrederiksen/library-due-dates/internal/metrics"
	"github.com/pfrederiksen/library-due-dates/internal/scraper"
)

// Actions applied to the calendar
const (
	ActionInsert = "insert"
	ActionDelete = "delete"
)

// Options controls a single run
type Options struct {
	DryRun bool
	// Calendar names the target calendar in the report
	Calendar string
}

// Failure records one calendar call that did not succeed
type Failure struct {
	Action  string `json:"action"`
	Summary string `json:"summary"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error"`
}

// Report describes what a run found and did
type Report struct {
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	DryRun     bool                `json:"dry_run"`
	Calendar   string              `json:"calendar"`
	Loans      []loan.Record       `json:"loans"`
	Summary    event.PlanSummary   `json:"summary"`
	Added      []event.RemoteEvent `json:"added"`
	Removed    []event.RemoteEvent `json:"removed"`
	Failures   []Failure           `json:"failures,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// OK reports whether the run finished without any error
func (r *Report) OK() bool {
	return r.Error == "" && len(r.Failures) == 0
}

// Runner wires a fetcher to a calendar store
type Runner struct {
	fetcher scraper.Fetcher
	store   calendar.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Runner. m may be nil.
func New(fetcher scraper.Fetcher, store calendar.Store, m *metrics.Metrics) *Runner {
	return &Runner{
		fetcher: fetcher,
		store:   store,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Loans fetches the checked-out items and extracts their loan records
func (r *Runner) Loans(ctx context.Context) ([]loan.Record, error) {
	items, err := r.fetcher.FetchItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching checked-out items: %w", err)
	}

	records, err := loan.Extract(items)
	if err != nil {
		return nil, fmt.Errorf("extracting loans: %w", err)
	}

	for _, rec := range records {
		logger.Info("Found loan", logger.Fields{
			"title":    rec.Title,
			"due_date": rec.DueDate.String(),
			"renewals": rec.RenewalNote,
		})
	}
	r.metrics.AddLoans(len(records))

	return records, nil
}

// Run performs one sync and returns its report. The report is non-nil even
// when an error is returned.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	start := r.now()
	report := &Report{
		StartedAt: start,
		DryRun:    opts.DryRun,
		Calendar:  opts.Calendar,
		Loans:     []loan.Record{},
		Added:     []event.RemoteEvent{},
		Removed:   []event.RemoteEvent{},
	}

	err := r.run(ctx, opts, report)

	report.FinishedAt = r.now()
	r.metrics.ObserveRun(report.FinishedAt.Sub(start))
	if err != nil {
		report.Error = err.Error()
		logger.Error("Sync failed", logger.Fields{
			"calendar": opts.Calendar,
			"failures": len(report.Failures),
		}, err)
		return report, err
	}

	if !opts.DryRun {
		r.metrics.MarkSuccess(report.FinishedAt)
	}
	logger.Info("Sync complete", logger.Fields{
		"calendar": opts.Calendar,
		"dry_run":  opts.DryRun,
		"added":    len(report.Added),
		"removed":  len(report.Removed),
	})
	return report, nil
}

func (r *Runner) run(ctx context.Context, opts Options, report *Report) error {
	records, err := r.Loans(ctx)
	if err != nil {
		return err
	}
	report.Loans = records

	desired := event.FromLoans(records)
	current, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing calendar events: %w", err)
	}

	plan := event.Reconcile(desired, current)
	report.Summary = plan.Summary(len(desired), len(current))

	logger.Info("Computed plan", logger.Fields{
		"desired":   report.Summary.Desired,
		"current":   report.Summary.Current,
		"unchanged": report.Summary.Unchanged,
		"to_add":    report.Summary.Added,
		"to_remove": report.Summary.Removed,
	})

	if opts.DryRun {
		for _, d := range plan.ToAdd {
			report.Added = append(report.Added, event.RemoteEvent{Descriptor: d})
		}
		report.Removed = append(report.Removed, plan.ToRemove...)
		logger.Info("Dry run, calendar left unchanged", nil)
		return nil
	}

	return r.apply(ctx, plan, report)
}

// apply deletes stale events, then inserts missing ones
func (r *Runner) apply(ctx context.Context, plan *event.Plan, report *Report) error {
	var errs []error

	for _, ev := range plan.ToRemove {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := r.store.Delete(ctx, ev.ID); err != nil {
			errs = append(errs, r.fail(report, ActionDelete, ev.Summary, ev.ID, err))
			continue
		}
		r.metrics.IncEvent(ActionDelete)
		report.Removed = append(report.Removed, ev)
		logger.Info("Deleted event", logger.Fields{
			"id":      ev.ID,
			"summary": ev.Summary,
			"date":    ev.Start.String(),
		})
	}

	for _, d := range plan.ToAdd {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		ev, err := r.store.Insert(ctx, d)
		if err != nil {
			errs = append(errs, r.fail(report, ActionInsert, d.Summary, "", err))
			continue
		}
		r.metrics.IncEvent(ActionInsert)
		report.Added = append(report.Added, ev)
		logger.Info("Inserted event", logger.Fields{
			"id":      ev.ID,
			"summary": ev.Summary,
			"date":    ev.Start.String(),
		})
	}

	return errors.Join(errs...)
}

func (r *Runner) fail(report *Report, action, summary, id string, err error) error {
	r.metrics.IncApplyError(action)
	report.Failures = append(report.Failures, Failure{
		Action:  action,
		Summary: summary,
		ID:      id,
		Error:   err.Error(),
	})
	logger.Error("Calendar update failed", logger.Fields{
		"action":  action,
		"summary": summary,
		"id":      id,
	}, err)
	return fmt.Errorf("%s %q: %w", action, summary, err)
}

// Package runner drives one sync: fetch checked-out items, extract loan
// records, reconcile them against the calendar and apply the plan.
//
// Deletions are applied before insertions. A failed calendar call is
// logged and counted and the rest of the plan still runs; every failure is
// returned joined into one error. A dry run computes the plan and applies
// nothing.
package runner

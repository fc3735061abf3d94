// Package metrics holds the Prometheus collectors for a sync run.
//
// Collectors live on a dedicated registry. A one-shot CLI has no scrape
// endpoint, so the registry is written to a node_exporter textfile instead.
package metrics

package worker

import (
	"time"

	cf "github.com/gofhir/conformance"
)

// Job is one unit of batch validation: a JSON instance and the canonical
// URI of the schema to validate it against.
type Job struct {
	// ID identifies the job in its results. Optional.
	ID string

	// URI addresses the schema, optionally with a "#anchor" fragment.
	URI string

	// Data is the instance document as JSON bytes.
	Data []byte
}

// Result pairs a job with its outcome. Err carries contract violations
// only; data findings are evidence in Report.
type Result struct {
	ID       string
	Report   cf.Report
	Err      error
	Duration time.Duration
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	Total    int
	Failed   int
	Faulted  int
	Duration time.Duration
}

// Summarize folds a result slice into counts.
func Summarize(results []Result) BatchSummary {
	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Faulted++
		case r.Report.Failed():
			summary.Failed++
		}
		summary.Duration += r.Duration
	}
	return summary
}

// Package worker provides parallel batch validation over a fixed worker
// pool, preserving input order in the results.
package worker

import (
	"context"
	"runtime"
	"sync"
	"time"

	cf "github.com/gofhir/conformance"
)

// ValidateFunc validates one instance. engine.Validator.ValidateJSON
// satisfies it directly via a closure.
type ValidateFunc func(ctx context.Context, uri string, data []byte) (cf.Report, error)

// Pool runs validation jobs across a fixed number of goroutines.
type Pool struct {
	validate ValidateFunc
	workers  int
}

// NewPool creates a pool. workers <= 0 defaults to runtime.NumCPU().
func NewPool(validate ValidateFunc, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{validate: validate, workers: workers}
}

// Run validates all jobs and returns one result per job, in job order.
// Cancelation stops the distribution of remaining jobs; their results carry
// the context error.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = p.runOne(ctx, jobs[i])
			}
		}()
	}

	for i := range jobs {
		select {
		case <-ctx.Done():
			close(indexes)
			wg.Wait()
			// Jobs from i on were never dispatched.
			for j := i; j < len(jobs); j++ {
				results[j] = Result{ID: jobs[j].ID, Err: ctx.Err()}
			}
			return results
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
	return results
}

func (p *Pool) runOne(ctx context.Context, job Job) Result {
	start := time.Now()
	report, err := p.validate(ctx, job.URI, job.Data)
	return Result{
		ID:       job.ID,
		Report:   report,
		Err:      err,
		Duration: time.Since(start),
	}
}

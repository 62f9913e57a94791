package conformance

import "runtime"

// Option configures validation behavior.
type Option func(*Options)

// Options holds all configuration for a validator.
type Options struct {
	// TerminologyFaultSeverity is the severity assigned to issues produced
	// when the terminology service raises a fault. Defaults to warning so an
	// unreachable service degrades the affected branch instead of failing it.
	TerminologyFaultSeverity Severity

	// IncludeTrace keeps information-severity evidence in reports.
	IncludeTrace bool

	// MaxIssues caps the evidence items per report. Zero means unlimited.
	MaxIssues int

	// Concurrency is the worker count used for batch validation.
	Concurrency int
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		TerminologyFaultSeverity: SeverityWarning,
		IncludeTrace:             true,
		MaxIssues:                0,
		Concurrency:              runtime.NumCPU(),
	}
}

// WithTerminologyFaultPolicy sets the severity used when the terminology
// service faults. Passing SeverityError escalates a service outage to a
// validation failure.
func WithTerminologyFaultPolicy(severity Severity) Option {
	return func(o *Options) {
		o.TerminologyFaultSeverity = severity
	}
}

// WithTrace controls whether information-severity evidence is kept.
func WithTrace(enable bool) Option {
	return func(o *Options) {
		o.IncludeTrace = enable
	}
}

// WithMaxIssues caps the number of evidence items returned per report.
func WithMaxIssues(max int) Option {
	return func(o *Options) {
		o.MaxIssues = max
	}
}

// WithConcurrency sets the worker count for batch validation.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

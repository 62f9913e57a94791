// Package engine ties schemas, collaborators, and options together into a
// ready-to-use conformance validator.
package engine

import (
	"context"
	"fmt"
	"time"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/assertion"
	"github.com/gofhir/conformance/element"
	"github.com/gofhir/conformance/logger"
)

// Validator is the entry point for validating instances against registered
// schemas. It is safe for concurrent use once built.
type Validator struct {
	schemas     assertion.SchemaResolver
	paths       assertion.PathEvaluator
	references  assertion.ReferenceResolver
	terminology assertion.TerminologyService

	options *cf.Options
	metrics *cf.Metrics
}

// New creates a validator over the given schema resolver. A nil resolver is
// a construction error; every other collaborator is optional.
func New(schemas assertion.SchemaResolver, opts ...cf.Option) (*Validator, error) {
	if schemas == nil {
		return nil, fmt.Errorf("engine: a schema resolver is required")
	}

	options := cf.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Validator{
		schemas: schemas,
		options: options,
		metrics: cf.NewMetrics(),
	}, nil
}

// SetPathEvaluator replaces the default child-path evaluator, typically with
// the FHIRPath adapter.
func (v *Validator) SetPathEvaluator(paths assertion.PathEvaluator) {
	v.paths = paths
}

// SetReferenceResolver installs a resolver for references that leave the
// instance.
func (v *Validator) SetReferenceResolver(references assertion.ReferenceResolver) {
	v.references = references
}

// SetTerminologyService installs the terminology service used by required
// bindings.
func (v *Validator) SetTerminologyService(terminology assertion.TerminologyService) {
	v.terminology = terminology
}

// Validate evaluates an instance against the schema addressed by uri. Data
// findings come back as evidence in the report; the error is reserved for
// contract violations such as a nil instance or a missing collaborator.
func (v *Validator) Validate(ctx context.Context, uri string, instance element.Node) (cf.Report, error) {
	start := time.Now()

	if instance == nil {
		return cf.Success, fmt.Errorf("engine: cannot validate a nil instance")
	}
	if uri == "" {
		return cf.Success, fmt.Errorf("engine: a schema URI is required")
	}

	ref, err := assertion.NewSchemaReference(uri, "")
	if err != nil {
		return cf.Success, err
	}

	report, err := ref.Validate(ctx, instance, v.context(), assertion.NewState())
	if err != nil {
		return cf.Success, err
	}

	report = v.shape(report)
	elapsed := time.Since(start)
	v.metrics.RecordValidation(report, elapsed)
	logger.Debug("validated against %s in %s (%d issues)", uri, elapsed, len(report.Evidence))
	return report, nil
}

// ValidateSchema evaluates an instance against an already-built schema,
// bypassing resolver lookup. Useful for ad-hoc schemas that are not
// registered anywhere.
func (v *Validator) ValidateSchema(ctx context.Context, schema *assertion.Schema, instance element.Node) (cf.Report, error) {
	start := time.Now()

	if schema == nil {
		return cf.Success, fmt.Errorf("engine: cannot validate against a nil schema")
	}
	if instance == nil {
		return cf.Success, fmt.Errorf("engine: cannot validate a nil instance")
	}

	report, err := schema.Validate(ctx, instance, v.context(), assertion.NewState())
	if err != nil {
		return cf.Success, err
	}

	report = v.shape(report)
	v.metrics.RecordValidation(report, time.Since(start))
	return report, nil
}

// ValidateJSON parses a JSON document and validates it. Malformed JSON is an
// input contract violation, not evidence.
func (v *Validator) ValidateJSON(ctx context.Context, uri string, data []byte) (cf.Report, error) {
	instance, err := element.FromJSON(data)
	if err != nil {
		return cf.Success, fmt.Errorf("engine: parse instance: %w", err)
	}
	return v.Validate(ctx, uri, instance)
}

// context assembles the per-run collaborator context from the validator's
// configuration.
func (v *Validator) context() *assertion.Context {
	vc := assertion.NewContext(v.schemas)
	if v.paths != nil {
		vc.Paths = v.paths
	}
	vc.References = v.references
	vc.Terminology = v.terminology
	vc.TerminologyFaultSeverity = v.options.TerminologyFaultSeverity
	return vc
}

// shape applies the trace and truncation policies to a finished report.
func (v *Validator) shape(report cf.Report) cf.Report {
	if !v.options.IncludeTrace {
		report = report.WithoutTrace()
	}
	if v.options.MaxIssues > 0 {
		report = report.Truncated(v.options.MaxIssues)
	}
	return report
}

// Metrics returns the validator's counters.
func (v *Validator) Metrics() *cf.Metrics {
	return v.metrics
}

// Options returns the effective options.
func (v *Validator) Options() *cf.Options {
	return v.options
}

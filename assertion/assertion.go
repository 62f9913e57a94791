package assertion

import (
	"context"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// Assertion is a node in a compiled validation tree. Assertions are
// immutable once built and safe to share across concurrent validations.
//
// Every assertion implements at least one of Validator (single-node capable)
// or GroupValidator (node-set capable); the capability is part of the
// compile-time type, so single-vs-group dispatch is checked by the compiler
// rather than discovered at runtime.
type Assertion interface {
	// ToMap renders the assertion as a generic nested key-value structure
	// for diagnostic tooling.
	ToMap() map[string]any
}

// Validator is an assertion that evaluates a single instance node.
type Validator interface {
	Assertion
	Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error)
}

// GroupValidator is an assertion that evaluates an ordered set of candidate
// nodes as a whole, e.g. cardinality and slicing rules.
type GroupValidator interface {
	Assertion
	ValidateGroup(ctx context.Context, nodes []element.Node, vc *Context, st State) (cf.Report, error)
}

// Apply evaluates an assertion over a candidate set using the dispatch
// convention shared by all composites: a GroupValidator receives the full
// set, a plain Validator is applied to each node in order and the reports
// are combined. Assertions with neither capability contribute no evidence.
//
// The returned error is reserved for contract violations; data-related
// findings are always evidence in the report.
func Apply(ctx context.Context, a Assertion, nodes []element.Node, vc *Context, st State) (cf.Report, error) {
	if g, ok := a.(GroupValidator); ok {
		return g.ValidateGroup(ctx, nodes, vc, st)
	}
	v, ok := a.(Validator)
	if !ok {
		return cf.Success, nil
	}
	reports := make([]cf.Report, 0, len(nodes))
	for _, n := range nodes {
		r, err := v.Validate(ctx, n, vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}
	return cf.Combine(reports...), nil
}

// ApplyOne evaluates an assertion over a single node, preserving the
// single-node calling convention: a Validator gets the node directly, a
// group-only assertion gets a one-element set.
func ApplyOne(ctx context.Context, a Assertion, node element.Node, vc *Context, st State) (cf.Report, error) {
	if v, ok := a.(Validator); ok {
		return v.Validate(ctx, node, vc, st)
	}
	if g, ok := a.(GroupValidator); ok {
		return g.ValidateGroup(ctx, []element.Node{node}, vc, st)
	}
	return cf.Success, nil
}

// Context carries the collaborators and policies for one validation run.
// It is shared by all assertions of the run and never mutated during it.
type Context struct {
	// Schemas resolves canonical URIs (plus optional anchors) to schemas.
	Schemas SchemaResolver

	// Paths evaluates selection expressions over instance nodes.
	Paths PathEvaluator

	// References resolves references that leave the current instance.
	// Optional; when nil, externally referenced targets stay unresolved.
	References ReferenceResolver

	// Terminology validates coded values. Optional; required-strength
	// bindings fail with a contract error when it is missing.
	Terminology TerminologyService

	// TerminologyFaultSeverity is the severity given to issues produced
	// when the terminology service faults. Defaults to warning.
	TerminologyFaultSeverity cf.Severity
}

// NewContext creates a validation context with the given schema resolver and
// default collaborators: a dependency-free child-path evaluator and a
// warning-level terminology fault policy.
func NewContext(schemas SchemaResolver) *Context {
	return &Context{
		Schemas:                  schemas,
		Paths:                    childPathEvaluator{},
		TerminologyFaultSeverity: cf.SeverityWarning,
	}
}

// faultSeverity returns the configured terminology fault severity, guarding
// against a zero value.
func (vc *Context) faultSeverity() cf.Severity {
	if vc.TerminologyFaultSeverity == "" {
		return cf.SeverityWarning
	}
	return vc.TerminologyFaultSeverity
}

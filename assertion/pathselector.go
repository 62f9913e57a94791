package assertion

import (
	"context"
	"fmt"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// PathSelector evaluates a selection expression over the instance and
// applies a wrapped assertion to the result.
//
// Arity dispatch: a group-capable wrapped assertion receives whatever the
// expression yielded, including nothing. A single-node-only assertion
// requires exactly one result; zero results and ambiguous results are
// failures.
type PathSelector struct {
	expression string
	wrapped    Assertion
}

// NewPathSelector creates a path selector. An empty expression or nil
// wrapped assertion is a construction-time error.
func NewPathSelector(expression string, wrapped Assertion) (*PathSelector, error) {
	if expression == "" {
		return nil, fmt.Errorf("assertion: path selector expression must not be empty")
	}
	if wrapped == nil {
		return nil, fmt.Errorf("assertion: path selector requires a wrapped assertion")
	}
	return &PathSelector{expression: expression, wrapped: wrapped}, nil
}

// Validate implements Validator.
func (p *PathSelector) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	if vc.Paths == nil {
		return cf.Success, fmt.Errorf("assertion: no path evaluator configured")
	}

	selected, err := vc.Paths.Select(ctx, p.expression, node)
	if err != nil {
		// An evaluator fault degrades the branch, it never escapes.
		return cf.ReportOf(cf.NewIssue(cf.DiagPathEvalFailed, node.Location(), map[string]any{
			"expression": p.expression,
			"error":      err.Error(),
		})), nil
	}

	if _, group := p.wrapped.(GroupValidator); group {
		return Apply(ctx, p.wrapped, selected, vc, st)
	}

	switch len(selected) {
	case 0:
		return cf.ReportOf(cf.NewIssue(cf.DiagPathNoResult, node.Location(), map[string]any{
			"expression": p.expression,
		})), nil
	case 1:
		return ApplyOne(ctx, p.wrapped, selected[0], vc, st)
	default:
		return cf.ReportOf(cf.NewIssue(cf.DiagPathAmbiguous, node.Location(), map[string]any{
			"expression": p.expression,
			"count":      len(selected),
		})), nil
	}
}

// ToMap implements Assertion.
func (p *PathSelector) ToMap() map[string]any {
	return map[string]any{
		"path":      p.expression,
		"assertion": p.wrapped.ToMap(),
	}
}

var _ Validator = (*PathSelector)(nil)

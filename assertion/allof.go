package assertion

import (
	"context"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// AllOf evaluates every member and concatenates their evidence in declared
// order. It is node-set capable: group-capable members receive the full
// candidate set, single-node members are applied per node.
type AllOf struct {
	members []Assertion
}

// NewAllOf creates an all-of composite over the given members.
func NewAllOf(members ...Assertion) *AllOf {
	return &AllOf{members: members}
}

// Members returns the member assertions in declared order.
func (a *AllOf) Members() []Assertion { return a.members }

// ValidateGroup implements GroupValidator.
func (a *AllOf) ValidateGroup(ctx context.Context, nodes []element.Node, vc *Context, st State) (cf.Report, error) {
	reports := make([]cf.Report, 0, len(a.members))
	for _, m := range a.members {
		r, err := Apply(ctx, m, nodes, vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}
	return cf.Combine(reports...), nil
}

// Validate implements Validator for the single-node convention.
func (a *AllOf) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	reports := make([]cf.Report, 0, len(a.members))
	for _, m := range a.members {
		r, err := ApplyOne(ctx, m, node, vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}
	return cf.Combine(reports...), nil
}

// ToMap implements Assertion.
func (a *AllOf) ToMap() map[string]any {
	members := make([]any, len(a.members))
	for i, m := range a.members {
		members[i] = m.ToMap()
	}
	return map[string]any{"allOf": members}
}

var (
	_ Validator      = (*AllOf)(nil)
	_ GroupValidator = (*AllOf)(nil)
)

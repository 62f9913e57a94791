package assertion

import (
	"context"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
	"github.com/gofhir/conformance/pool"
)

// ChildRule pairs a child name with the assertion its occurrences must
// satisfy.
type ChildRule struct {
	Name      string
	Assertion Assertion
}

// Children validates each configured child of a node against its
// sub-assertion and aggregates the evidence in declared order.
//
// An absent child is handed to group-capable sub-assertions as the empty
// set, so a nested cardinality minimum still fires; single-node-only
// sub-assertions are skipped when the child is absent.
type Children struct {
	rules           []ChildRule
	allowAdditional bool
}

// NewChildren creates a children validator. When allowAdditional is false,
// child names the rules do not cover are reported as unknown elements.
func NewChildren(rules []ChildRule, allowAdditional bool) *Children {
	return &Children{rules: rules, allowAdditional: allowAdditional}
}

// Validate implements Validator.
func (c *Children) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	var reports []cf.Report

	for _, rule := range c.rules {
		selected := node.Children(rule.Name)
		if len(selected) == 0 {
			if g, ok := rule.Assertion.(GroupValidator); ok {
				r, err := g.ValidateGroup(ctx, nil, vc, st)
				if err != nil {
					return cf.Success, err
				}
				reports = append(reports, locateEmptyGroup(r, node, rule.Name))
			}
			continue
		}
		r, err := Apply(ctx, rule.Assertion, selected, vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}

	if !c.allowAdditional {
		reports = append(reports, c.reportUnknown(node))
	}
	return cf.Combine(reports...), nil
}

// reportUnknown flags child names not covered by any rule.
func (c *Children) reportUnknown(node element.Node) cf.Report {
	known := make(map[string]bool, len(c.rules))
	for _, rule := range c.rules {
		known[rule.Name] = true
	}
	var issues []cf.Issue
	for _, name := range node.ChildNames() {
		if name == "resourceType" || known[name] {
			continue
		}
		issues = append(issues, cf.NewIssue(cf.DiagChildrenUnknown, pool.ChildPath(node.Location(), name), map[string]any{
			"name": name,
		}))
	}
	return cf.ReportOf(issues...)
}

// locateEmptyGroup attaches the parent's child path to evidence produced for
// an absent child, which otherwise has no node to point at.
func locateEmptyGroup(r cf.Report, node element.Node, name string) cf.Report {
	if len(r.Evidence) == 0 {
		return r
	}
	loc := pool.ChildPath(node.Location(), name)
	evidence := make([]cf.Issue, len(r.Evidence))
	for i, issue := range r.Evidence {
		if issue.Location == "" {
			issue.Location = loc
		}
		evidence[i] = issue
	}
	return cf.ReportOf(evidence...)
}

// ToMap implements Assertion.
func (c *Children) ToMap() map[string]any {
	children := make(map[string]any, len(c.rules))
	for _, rule := range c.rules {
		children[rule.Name] = rule.Assertion.ToMap()
	}
	return map[string]any{
		"children":        children,
		"allowAdditional": c.allowAdditional,
	}
}

var _ Validator = (*Children)(nil)

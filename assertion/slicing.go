package assertion

import (
	"context"
	"fmt"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// SlicingRules controls what happens to candidate nodes no slice claims.
type SlicingRules string

const (
	// SlicingClosed rejects unmatched nodes.
	SlicingClosed SlicingRules = "closed"
	// SlicingOpen accepts unmatched nodes (subject to the default assertion).
	SlicingOpen SlicingRules = "open"
	// SlicingOpenAtEnd accepts unmatched nodes only after all nodes that
	// matched an explicit slice.
	SlicingOpenAtEnd SlicingRules = "openAtEnd"
)

// SliceCase is one named case in the ordered dispatch: a condition that
// decides membership and an assertion the members must satisfy.
type SliceCase struct {
	Name      string
	Condition Assertion
	Assertion Assertion
}

// Slicing partitions a candidate set over ordered slice cases and validates
// each partition independently.
//
// Conditions are evaluated in declared order and the first match wins, so a
// node matching several conditions is assigned to the earliest slice only.
// Each slice's assertion is applied to exactly the nodes assigned to it,
// including the empty set, which is how per-slice cardinality minimums fire.
type Slicing struct {
	cases       []SliceCase
	defaultCase Assertion
	rules       SlicingRules
}

// NewSlicing creates a slice dispatch. Unknown rules, unnamed cases, and
// cases without a condition or assertion are construction-time errors.
// defaultCase may be nil.
func NewSlicing(cases []SliceCase, defaultCase Assertion, rules SlicingRules) (*Slicing, error) {
	switch rules {
	case SlicingClosed, SlicingOpen, SlicingOpenAtEnd:
	default:
		return nil, fmt.Errorf("assertion: unknown slicing rules %q", rules)
	}
	for i, c := range cases {
		if c.Name == "" {
			return nil, fmt.Errorf("assertion: slice case %d has no name", i)
		}
		if c.Condition == nil || c.Assertion == nil {
			return nil, fmt.Errorf("assertion: slice %q requires a condition and an assertion", c.Name)
		}
	}
	return &Slicing{cases: cases, defaultCase: defaultCase, rules: rules}, nil
}

// ValidateGroup implements GroupValidator.
func (s *Slicing) ValidateGroup(ctx context.Context, nodes []element.Node, vc *Context, st State) (cf.Report, error) {
	buckets := make([][]element.Node, len(s.cases))
	var unmatched []element.Node
	var unmatchedIdx []int
	lastSliced := -1

	for idx, node := range nodes {
		assigned := false
		for i, c := range s.cases {
			match, err := s.matches(ctx, c.Condition, node, vc, st)
			if err != nil {
				return cf.Success, err
			}
			if match {
				buckets[i] = append(buckets[i], node)
				assigned = true
				if idx > lastSliced {
					lastSliced = idx
				}
				break
			}
		}
		if !assigned {
			unmatched = append(unmatched, node)
			unmatchedIdx = append(unmatchedIdx, idx)
		}
	}

	var reports []cf.Report
	for i, c := range s.cases {
		r, err := Apply(ctx, c.Assertion, buckets[i], vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}

	r, err := s.validateUnmatched(ctx, unmatched, unmatchedIdx, lastSliced, vc, st)
	if err != nil {
		return cf.Success, err
	}
	reports = append(reports, r)

	return cf.Combine(reports...), nil
}

// matches evaluates a slice condition; membership is the condition
// succeeding. Condition evidence is discarded.
func (s *Slicing) matches(ctx context.Context, condition Assertion, node element.Node, vc *Context, st State) (bool, error) {
	r, err := ApplyOne(ctx, condition, node, vc, st)
	if err != nil {
		return false, err
	}
	return r.IsSuccessful(), nil
}

// validateUnmatched applies the slicing rules to nodes no slice claimed.
func (s *Slicing) validateUnmatched(ctx context.Context, unmatched []element.Node, indices []int, lastSliced int, vc *Context, st State) (cf.Report, error) {
	if len(unmatched) == 0 {
		return cf.Success, nil
	}

	switch s.rules {
	case SlicingClosed:
		issues := make([]cf.Issue, len(unmatched))
		for i, node := range unmatched {
			issues[i] = cf.NewIssue(cf.DiagSliceClosed, node.Location(), nil)
		}
		return cf.ReportOf(issues...), nil

	case SlicingOpenAtEnd:
		var issues []cf.Issue
		var allowed []element.Node
		for i, node := range unmatched {
			if indices[i] < lastSliced {
				issues = append(issues, cf.NewIssue(cf.DiagSliceOrder, node.Location(), nil))
			} else {
				allowed = append(allowed, node)
			}
		}
		r, err := s.applyDefault(ctx, allowed, vc, st)
		if err != nil {
			return cf.Success, err
		}
		return cf.Combine(cf.ReportOf(issues...), r), nil

	default: // SlicingOpen
		return s.applyDefault(ctx, unmatched, vc, st)
	}
}

func (s *Slicing) applyDefault(ctx context.Context, nodes []element.Node, vc *Context, st State) (cf.Report, error) {
	if s.defaultCase == nil || len(nodes) == 0 {
		return cf.Success, nil
	}
	return Apply(ctx, s.defaultCase, nodes, vc, st)
}

// ToMap implements Assertion.
func (s *Slicing) ToMap() map[string]any {
	cases := make([]any, len(s.cases))
	for i, c := range s.cases {
		cases[i] = map[string]any{
			"name":      c.Name,
			"condition": c.Condition.ToMap(),
			"assertion": c.Assertion.ToMap(),
		}
	}
	m := map[string]any{
		"slices": cases,
		"rules":  string(s.rules),
	}
	if s.defaultCase != nil {
		m["default"] = s.defaultCase.ToMap()
	}
	return m
}

var _ GroupValidator = (*Slicing)(nil)

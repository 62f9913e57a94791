package assertion

import (
	"context"
	"fmt"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// Unbounded marks a cardinality with no upper limit.
const Unbounded = -1

// Cardinality validates the number of nodes in a candidate set against an
// inclusive [min, max] range. It is node-set capable: an empty set is a
// legitimate input and fails when min > 0.
type Cardinality struct {
	min int
	max int
}

// NewCardinality creates a cardinality range. min must be non-negative and
// max must be Unbounded or at least min; anything else is a
// construction-time error.
func NewCardinality(min, max int) (*Cardinality, error) {
	if min < 0 {
		return nil, fmt.Errorf("assertion: cardinality min must be non-negative, got %d", min)
	}
	if max != Unbounded && max < min {
		return nil, fmt.Errorf("assertion: cardinality max %d is smaller than min %d", max, min)
	}
	return &Cardinality{min: min, max: max}, nil
}

// Min returns the lower bound.
func (c *Cardinality) Min() int { return c.min }

// Max returns the upper bound, Unbounded when there is none.
func (c *Cardinality) Max() int { return c.max }

// ValidateGroup implements GroupValidator.
func (c *Cardinality) ValidateGroup(_ context.Context, nodes []element.Node, _ *Context, _ State) (cf.Report, error) {
	count := len(nodes)
	loc := ""
	if count > 0 {
		loc = nodes[0].Location()
	}

	if count < c.min {
		return cf.ReportOf(cf.NewIssue(cf.DiagCardinalityMin, loc, map[string]any{
			"min":   c.min,
			"count": count,
		})), nil
	}
	if c.max != Unbounded && count > c.max {
		return cf.ReportOf(cf.NewIssue(cf.DiagCardinalityMax, loc, map[string]any{
			"max":   c.max,
			"count": count,
		})), nil
	}
	return cf.Success, nil
}

// ToMap implements Assertion.
func (c *Cardinality) ToMap() map[string]any {
	max := any("*")
	if c.max != Unbounded {
		max = c.max
	}
	return map[string]any{"cardinality": map[string]any{"min": c.min, "max": max}}
}

var _ GroupValidator = (*Cardinality)(nil)

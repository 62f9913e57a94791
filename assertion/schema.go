package assertion

import (
	"context"
	"fmt"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// Schema is an addressable assertion subtree: a canonical URI (or, for
// subschemas, an anchor) plus ordered member assertions that all must hold.
// Schemas are compiled once and never mutated, so one schema may be
// evaluated by many concurrent validations.
type Schema struct {
	url     string
	anchor  string
	members []Assertion
}

// NewSchema creates a top-level schema with a canonical URL. An empty URL
// is a construction-time error.
func NewSchema(url string, members ...Assertion) (*Schema, error) {
	if url == "" {
		return nil, fmt.Errorf("assertion: schema requires a canonical URL")
	}
	return &Schema{url: url, members: members}, nil
}

// NewSubschema creates an anchor-addressable subschema for use inside a
// Definitions container. An empty anchor is a construction-time error.
func NewSubschema(anchor string, members ...Assertion) (*Schema, error) {
	if anchor == "" {
		return nil, fmt.Errorf("assertion: subschema requires an anchor")
	}
	return &Schema{anchor: anchor, members: members}, nil
}

// URL returns the canonical URL, "" for subschemas.
func (s *Schema) URL() string { return s.url }

// Anchor returns the anchor fragment, "" for top-level schemas.
func (s *Schema) Anchor() string { return s.anchor }

// ValidateGroup implements GroupValidator: every member is evaluated over
// the candidate set and the evidence concatenated in declared order.
func (s *Schema) ValidateGroup(ctx context.Context, nodes []element.Node, vc *Context, st State) (cf.Report, error) {
	reports := make([]cf.Report, 0, len(s.members))
	for _, m := range s.members {
		r, err := Apply(ctx, m, nodes, vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}
	return cf.Combine(reports...), nil
}

// Validate implements Validator for the single-node convention.
func (s *Schema) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	reports := make([]cf.Report, 0, len(s.members))
	for _, m := range s.members {
		r, err := ApplyOne(ctx, m, node, vc, st)
		if err != nil {
			return cf.Success, err
		}
		reports = append(reports, r)
	}
	return cf.Combine(reports...), nil
}

// FindAnchor returns the first subschema whose anchor equals the requested
// identifier, searching this schema's Definitions containers depth-first in
// member order. Anchors are unique among siblings (enforced at
// construction), so "first" is deterministic. It returns nil when no
// subschema matches.
func (s *Schema) FindAnchor(anchor string) *Schema {
	for _, m := range s.members {
		defs, ok := m.(*Definitions)
		if !ok {
			continue
		}
		for _, sub := range defs.schemas {
			if sub.anchor == anchor {
				return sub
			}
		}
		for _, sub := range defs.schemas {
			if found := sub.FindAnchor(anchor); found != nil {
				return found
			}
		}
	}
	return nil
}

// ToMap implements Assertion.
func (s *Schema) ToMap() map[string]any {
	members := make([]any, len(s.members))
	for i, m := range s.members {
		members[i] = m.ToMap()
	}
	m := map[string]any{"members": members}
	if s.url != "" {
		m["url"] = s.url
	}
	if s.anchor != "" {
		m["anchor"] = s.anchor
	}
	return m
}

// Definitions is a container of named subschemas. It contributes no
// evidence of its own; its subschemas are reachable only through anchor
// lookup by schema references.
type Definitions struct {
	schemas []*Schema
}

// NewDefinitions creates a definitions container. Subschemas without an
// anchor and duplicate anchors among siblings are construction-time errors.
func NewDefinitions(schemas ...*Schema) (*Definitions, error) {
	seen := make(map[string]bool, len(schemas))
	for _, sub := range schemas {
		if sub == nil {
			return nil, fmt.Errorf("assertion: definitions contains a nil subschema")
		}
		if sub.anchor == "" {
			return nil, fmt.Errorf("assertion: definitions subschema %q has no anchor", sub.url)
		}
		if seen[sub.anchor] {
			return nil, fmt.Errorf("assertion: duplicate anchor %q in definitions", sub.anchor)
		}
		seen[sub.anchor] = true
	}
	return &Definitions{schemas: schemas}, nil
}

// Schemas returns the contained subschemas in declared order.
func (d *Definitions) Schemas() []*Schema { return d.schemas }

// ToMap implements Assertion.
func (d *Definitions) ToMap() map[string]any {
	schemas := make([]any, len(d.schemas))
	for i, sub := range d.schemas {
		schemas[i] = sub.ToMap()
	}
	return map[string]any{"definitions": schemas}
}

var (
	_ Validator      = (*Schema)(nil)
	_ GroupValidator = (*Schema)(nil)
	_ Assertion      = (*Definitions)(nil)
)

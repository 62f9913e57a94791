package assertion

import (
	"context"
	"fmt"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// SchemaReference points at another schema by canonical URI plus optional
// anchor. It holds identifiers only, never the target itself; the target is
// looked up through the context's SchemaResolver at evaluation time. This
// keeps mutually and self-referential schemas free of cycles in the schema
// object graph.
type SchemaReference struct {
	uri    string
	anchor string
}

// NewSchemaReference creates a reference to the schema at uri. The anchor
// may be empty; a "url#anchor" uri is split. An empty uri is a
// construction-time error.
func NewSchemaReference(uri, anchor string) (*SchemaReference, error) {
	if uri == "" {
		return nil, fmt.Errorf("assertion: schema reference requires a URI")
	}
	for i := 0; i < len(uri); i++ {
		if uri[i] == '#' {
			if anchor != "" {
				return nil, fmt.Errorf("assertion: schema reference %q carries both a fragment and an anchor", uri)
			}
			uri, anchor = uri[:i], uri[i+1:]
			break
		}
	}
	return &SchemaReference{uri: uri, anchor: anchor}, nil
}

// Target returns the full target identifier, "url" or "url#anchor".
func (r *SchemaReference) Target() string {
	if r.anchor == "" {
		return r.uri
	}
	return r.uri + "#" + r.anchor
}

// resolve fetches the target schema. A missing schema or a resolver fault
// both surface as an unresolvable-schema issue, never as a fault.
func (r *SchemaReference) resolve(ctx context.Context, node element.Node, vc *Context) (*Schema, cf.Report, error) {
	if vc.Schemas == nil {
		return nil, cf.Success, fmt.Errorf("assertion: no schema resolver configured")
	}
	loc := ""
	if node != nil {
		loc = node.Location()
	}
	schema, err := vc.Schemas.ResolveSchema(ctx, r.Target())
	if err != nil || schema == nil {
		return nil, cf.ReportOf(cf.NewIssue(cf.DiagSchemaUnresolvable, loc, map[string]any{
			"uri": r.Target(),
		})), nil
	}
	return schema, cf.Success, nil
}

// Validate implements Validator: the resolved schema is evaluated over the
// same input with the single-node convention preserved.
func (r *SchemaReference) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	schema, report, err := r.resolve(ctx, node, vc)
	if err != nil || schema == nil {
		return report, err
	}
	return schema.Validate(ctx, node, vc, st)
}

// ValidateGroup implements GroupValidator with the node-set convention
// preserved.
func (r *SchemaReference) ValidateGroup(ctx context.Context, nodes []element.Node, vc *Context, st State) (cf.Report, error) {
	var first element.Node
	if len(nodes) > 0 {
		first = nodes[0]
	}
	schema, report, err := r.resolve(ctx, first, vc)
	if err != nil || schema == nil {
		return report, err
	}
	return schema.ValidateGroup(ctx, nodes, vc, st)
}

// ToMap implements Assertion.
func (r *SchemaReference) ToMap() map[string]any {
	return map[string]any{"ref": r.Target()}
}

var (
	_ Validator      = (*SchemaReference)(nil)
	_ GroupValidator = (*SchemaReference)(nil)
)

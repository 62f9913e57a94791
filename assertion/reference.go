package assertion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// AggregationKind classifies how a reference relates to its container.
type AggregationKind string

const (
	// AggregationContained marks a reference into the same resource ("#id").
	AggregationContained AggregationKind = "contained"
	// AggregationBundled marks a reference resolved within the same bundle.
	AggregationBundled AggregationKind = "bundled"
	// AggregationReferenced marks a reference that leaves the instance.
	AggregationReferenced AggregationKind = "referenced"
)

// VersioningRule constrains whether references must pin a version.
type VersioningRule string

const (
	// VersioningEither accepts both shapes.
	VersioningEither VersioningRule = "either"
	// VersioningSpecific requires a version-specific reference.
	VersioningSpecific VersioningRule = "specific"
	// VersioningIndependent requires a version-independent reference.
	VersioningIndependent VersioningRule = "independent"
)

// RefersToConfig configures a RefersTo assertion.
type RefersToConfig struct {
	// Member is the child element holding the reference string.
	// Defaults to "reference".
	Member string

	// Allowed lists the permitted aggregation kinds. Empty allows all.
	Allowed []AggregationKind

	// Versioning is the required versioning shape. Defaults to either.
	Versioning VersioningRule
}

// RefersTo validates a cross-instance reference: it extracts the reference
// string, classifies it, resolves it (locally first, then through the
// external resolver), and recursively validates the resolved instance
// against a target assertion.
//
// Cycle detection lives here: a reference string already visited on the
// current traversal path is reported once as informational evidence and not
// followed, so cyclic data terminates while a DAG reachable via sibling
// paths is validated per path.
type RefersTo struct {
	member     string
	target     Assertion
	allowed    []AggregationKind
	versioning VersioningRule
}

// NewRefersTo creates a reference validator. A nil target or an unknown
// configuration value is a construction-time error.
func NewRefersTo(target Assertion, cfg RefersToConfig) (*RefersTo, error) {
	if target == nil {
		return nil, fmt.Errorf("assertion: refersTo requires a target assertion")
	}
	member := cfg.Member
	if member == "" {
		member = "reference"
	}
	versioning := cfg.Versioning
	if versioning == "" {
		versioning = VersioningEither
	}
	switch versioning {
	case VersioningEither, VersioningSpecific, VersioningIndependent:
	default:
		return nil, fmt.Errorf("assertion: unknown versioning rule %q", versioning)
	}
	for _, kind := range cfg.Allowed {
		switch kind {
		case AggregationContained, AggregationBundled, AggregationReferenced:
		default:
			return nil, fmt.Errorf("assertion: unknown aggregation kind %q", kind)
		}
	}
	return &RefersTo{
		member:     member,
		target:     target,
		allowed:    cfg.Allowed,
		versioning: versioning,
	}, nil
}

// resolution is the transient outcome of locating a reference target.
type resolution struct {
	node       element.Node
	kind       AggregationKind
	versioning VersioningRule
}

// Validate implements Validator.
func (r *RefersTo) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	ref := r.extract(node)
	if ref == "" {
		// Nothing to check; presence is a cardinality concern.
		return cf.Success, nil
	}

	if st.Visited(ref) {
		return cf.ReportOf(cf.NewIssue(cf.DiagReferenceCycle, node.Location(), map[string]any{
			"reference": ref,
		})), nil
	}
	visited := st.Visit(ref)

	res, faultReport := r.resolve(ctx, node, ref, vc)

	checks := cf.Combine(faultReport, r.checkAggregation(node, ref, res.kind), r.checkVersioning(node, ref, res.versioning))

	if res.node == nil {
		if len(faultReport.Evidence) > 0 {
			// The collaborator fault already explains the miss.
			return checks, nil
		}
		return cf.Combine(checks, cf.ReportOf(cf.NewIssue(cf.DiagReferenceUnresolvable, node.Location(), map[string]any{
			"reference": ref,
		}))), nil
	}

	// External targets carry their own document root, so their contained
	// and bundled bookkeeping is naturally isolated from the referrer's.
	// The visited set stays threaded through, which is what bounds
	// mutually referencing instances.
	validated, err := ApplyOne(ctx, r.target, res.node, vc, visited)
	if err != nil {
		return cf.Success, err
	}
	return cf.Combine(checks, validated), nil
}

// extract pulls the reference string out of the configured member, falling
// back to the node's own primitive value for canonical-style references.
func (r *RefersTo) extract(node element.Node) string {
	for _, child := range node.Children(r.member) {
		if s, ok := child.Value().(string); ok && s != "" {
			return s
		}
	}
	if s, ok := node.Value().(string); ok {
		return s
	}
	return ""
}

// resolve locates the reference target and classifies the relationship.
// Only the external collaborator call may fault, and that fault is converted
// to evidence here at the call site.
func (r *RefersTo) resolve(ctx context.Context, node element.Node, ref string, vc *Context) (resolution, cf.Report) {
	res := resolution{versioning: versionShape(ref)}

	if strings.HasPrefix(ref, "#") {
		res.kind = AggregationContained
		res.node = node.Resolve(ref)
		return res, cf.Success
	}

	if found := node.Resolve(stripVersion(ref)); found != nil {
		res.kind = AggregationBundled
		res.node = found
		return res, cf.Success
	}

	res.kind = AggregationReferenced
	if vc.References == nil {
		return res, cf.Success
	}

	target, err := vc.References.ResolveExternal(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return res, cf.Success
		}
		return res, cf.ReportOf(cf.NewIssue(cf.DiagReferenceUnavailable, node.Location(), map[string]any{
			"reference": ref,
			"error":     err.Error(),
		}))
	}
	res.node = target
	return res, cf.Success
}

func (r *RefersTo) checkAggregation(node element.Node, ref string, kind AggregationKind) cf.Report {
	if len(r.allowed) == 0 {
		return cf.Success
	}
	for _, allowed := range r.allowed {
		if kind == allowed {
			return cf.Success
		}
	}
	names := make([]string, len(r.allowed))
	for i, a := range r.allowed {
		names[i] = string(a)
	}
	return cf.ReportOf(cf.NewIssue(cf.DiagReferenceAggregation, node.Location(), map[string]any{
		"reference": ref,
		"kind":      string(kind),
		"allowed":   strings.Join(names, ", "),
	}))
}

func (r *RefersTo) checkVersioning(node element.Node, ref string, shape VersioningRule) cf.Report {
	if r.versioning == VersioningEither || shape == r.versioning {
		return cf.Success
	}
	return cf.ReportOf(cf.NewIssue(cf.DiagReferenceVersioning, node.Location(), map[string]any{
		"reference": ref,
		"kind":      string(shape),
		"required":  string(r.versioning),
	}))
}

// versionShape classifies a reference as version-specific or -independent.
func versionShape(ref string) VersioningRule {
	if strings.Contains(ref, "/_history/") || strings.Contains(ref, "|") {
		return VersioningSpecific
	}
	return VersioningIndependent
}

// stripVersion removes the version designator so local lookup matches the
// unversioned identity.
func stripVersion(ref string) string {
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		return ref[:i]
	}
	if i := strings.IndexByte(ref, '|'); i >= 0 {
		return ref[:i]
	}
	return ref
}

// ToMap implements Assertion.
func (r *RefersTo) ToMap() map[string]any {
	m := map[string]any{
		"refersTo": r.target.ToMap(),
		"member":   r.member,
	}
	if len(r.allowed) > 0 {
		kinds := make([]any, len(r.allowed))
		for i, a := range r.allowed {
			kinds[i] = string(a)
		}
		m["aggregation"] = kinds
	}
	if r.versioning != VersioningEither {
		m["versioning"] = string(r.versioning)
	}
	return m
}

var _ Validator = (*RefersTo)(nil)

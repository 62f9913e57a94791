package assertion

import (
	"context"
	"testing"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// mustNode parses a JSON instance or fails the test.
func mustNode(t *testing.T, data string) element.Node {
	t.Helper()
	n, err := element.FromJSON([]byte(data))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	return n
}

// leaf returns the first child with the given name, for tests that target a
// primitive node directly.
func leaf(t *testing.T, n element.Node, name string) element.Node {
	t.Helper()
	children := n.Children(name)
	if len(children) == 0 {
		t.Fatalf("no child %q", name)
	}
	return children[0]
}

// mapSchemas is a SchemaResolver over a fixed map.
type mapSchemas map[string]*Schema

func (m mapSchemas) ResolveSchema(_ context.Context, uri string) (*Schema, error) {
	if s, ok := m[uri]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// mapRefs is a ReferenceResolver over pre-parsed instances.
type mapRefs struct {
	nodes map[string]element.Node
	err   error
	calls int
}

func (m *mapRefs) ResolveExternal(_ context.Context, ref string) (element.Node, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if n, ok := m.nodes[ref]; ok {
		return n, nil
	}
	return nil, ErrNotFound
}

// stubTerminology answers every request with a fixed result or error.
type stubTerminology struct {
	result ValidateCodeResult
	err    error
	last   ValidateCodeRequest
}

func (s *stubTerminology) ValidateCode(_ context.Context, req ValidateCodeRequest) (ValidateCodeResult, error) {
	s.last = req
	if s.err != nil {
		return ValidateCodeResult{}, s.err
	}
	return s.result, nil
}

// failEvery is an assertion that always produces one error issue, useful to
// observe which nodes a composite dispatched to it.
type failEvery struct{}

func (failEvery) Validate(_ context.Context, node element.Node, _ *Context, _ State) (cf.Report, error) {
	return cf.ReportOf(cf.Issue{
		Severity:    cf.SeverityError,
		Code:        cf.IssueTypeValue,
		Diagnostics: "always fails",
		Location:    node.Location(),
	}), nil
}

func (failEvery) ToMap() map[string]any { return map[string]any{"failEvery": true} }

// passEvery succeeds on any node.
type passEvery struct{}

func (passEvery) Validate(_ context.Context, _ element.Node, _ *Context, _ State) (cf.Report, error) {
	return cf.Success, nil
}

func (passEvery) ToMap() map[string]any { return map[string]any{"passEvery": true} }

// hasChild is a condition assertion: succeeds when the node has a child
// with the configured name.
type hasChild struct{ name string }

func (h hasChild) Validate(_ context.Context, node element.Node, _ *Context, _ State) (cf.Report, error) {
	if len(node.Children(h.name)) > 0 {
		return cf.Success, nil
	}
	return cf.ReportOf(cf.Issue{Severity: cf.SeverityError, Code: cf.IssueTypeValue, Diagnostics: "no " + h.name}), nil
}

func (h hasChild) ToMap() map[string]any { return map[string]any{"hasChild": h.name} }

func mustPattern(t *testing.T, expr string) *Pattern {
	t.Helper()
	p, err := NewPattern(expr)
	if err != nil {
		t.Fatalf("NewPattern(%q): %v", expr, err)
	}
	return p
}

func mustCardinality(t *testing.T, min, max int) *Cardinality {
	t.Helper()
	c, err := NewCardinality(min, max)
	if err != nil {
		t.Fatalf("NewCardinality(%d, %d): %v", min, max, err)
	}
	return c
}

func mustSchema(t *testing.T, url string, members ...Assertion) *Schema {
	t.Helper()
	s, err := NewSchema(url, members...)
	if err != nil {
		t.Fatalf("NewSchema(%q): %v", url, err)
	}
	return s
}

// evidenceIDs extracts the diagnostic IDs of a report in order.
func evidenceIDs(r cf.Report) []cf.DiagnosticID {
	ids := make([]cf.DiagnosticID, len(r.Evidence))
	for i, issue := range r.Evidence {
		ids[i] = issue.ID
	}
	return ids
}

// countID counts evidence items with the given diagnostic ID.
func countID(r cf.Report, id cf.DiagnosticID) int {
	n := 0
	for _, issue := range r.Evidence {
		if issue.ID == id {
			n++
		}
	}
	return n
}

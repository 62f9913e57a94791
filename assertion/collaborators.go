package assertion

import (
	"context"
	"errors"

	"github.com/gofhir/conformance/element"
)

// ErrNotFound is returned by collaborators when a schema, resource, or code
// system cannot be found. Chains use it to decide whether to continue.
var ErrNotFound = errors.New("not found")

// SchemaResolver resolves canonical URIs to schemas. A URI may carry a
// fragment ("url#anchor") addressing a named subschema; resolution then
// searches the base schema's definitions for the anchor.
// Implementations may be I/O-bound.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, uri string) (*Schema, error)
}

// PathEvaluator evaluates a selection expression over an instance node and
// returns the ordered sequence of matching nodes.
type PathEvaluator interface {
	Select(ctx context.Context, expression string, node element.Node) ([]element.Node, error)
}

// ReferenceResolver resolves references that leave the current instance.
// Implementations may be I/O-bound; any fault is caught by the engine and
// converted into report evidence.
type ReferenceResolver interface {
	ResolveExternal(ctx context.Context, reference string) (element.Node, error)
}

// Coding is a single coded value: a code, optionally qualified by the system
// that defines it.
type Coding struct {
	System  string
	Version string
	Code    string
	Display string
}

// Concept is a concept-level coded shape: alternative codings plus free text.
type Concept struct {
	Codings []Coding
	Text    string
}

// HasCode reports whether any coding carries a non-empty code.
func (c Concept) HasCode() bool {
	for _, coding := range c.Codings {
		if coding.Code != "" {
			return true
		}
	}
	return false
}

// primaryCode is the first non-empty code, used in diagnostics.
func (c Concept) primaryCode() string {
	for _, coding := range c.Codings {
		if coding.Code != "" {
			return coding.Code
		}
	}
	return ""
}

// ValidateCodeRequest carries one coded value to be checked against a value
// set.
type ValidateCodeRequest struct {
	// ValueSet is the canonical URI of the target value set.
	ValueSet string

	// Coding is set when the bound value reduced to a single code/system
	// pair; it takes precedence over Concept.
	Coding *Coding

	// Concept is the full concept shape: alternative codings plus text.
	Concept Concept

	// AbstractAllowed permits abstract codes to satisfy the binding.
	AbstractAllowed bool

	// Context describes where the bound value was found, for messages.
	Context string
}

// ValidateCodeResult is the terminology service's verdict.
type ValidateCodeResult struct {
	// OK is true when the coded value is valid for the value set.
	OK bool

	// Message is an optional human-readable explanation. A message with
	// OK set maps to a warning; without OK it maps to an error.
	Message string
}

// TerminologyService validates coded values against value sets.
// Implementations may be I/O-bound; faults are mapped to issues via the
// configured fault policy, never propagated.
type TerminologyService interface {
	ValidateCode(ctx context.Context, req ValidateCodeRequest) (ValidateCodeResult, error)
}

// childPathEvaluator is the default PathEvaluator: it interprets an
// expression as a dotted child-name path and walks it breadth-first,
// flattening intermediate collections. It covers the selector needs of
// compiled schemas without an expression-language dependency.
type childPathEvaluator struct{}

func (childPathEvaluator) Select(_ context.Context, expression string, node element.Node) ([]element.Node, error) {
	if expression == "" || expression == "$this" {
		return []element.Node{node}, nil
	}
	current := []element.Node{node}
	start := 0
	for i := 0; i <= len(expression); i++ {
		if i != len(expression) && expression[i] != '.' {
			continue
		}
		name := expression[start:i]
		start = i + 1
		if name == "" {
			continue
		}
		var next []element.Node
		for _, n := range current {
			next = append(next, n.Children(name)...)
		}
		current = next
		if len(current) == 0 {
			return nil, nil
		}
	}
	return current, nil
}

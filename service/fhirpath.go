package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"

	"github.com/gofhir/conformance/assertion"
	"github.com/gofhir/conformance/element"
)

// FHIRPathAdapter adapts the fhirpath package to the assertion.PathEvaluator
// interface, with a compiled-expression cache.
type FHIRPathAdapter struct {
	mu    sync.RWMutex
	cache map[string]*fhirpath.Expression
}

// NewFHIRPathAdapter creates a new FHIRPath adapter.
func NewFHIRPathAdapter() *FHIRPathAdapter {
	return &FHIRPathAdapter{
		cache: make(map[string]*fhirpath.Expression),
	}
}

// Select evaluates a FHIRPath expression against an instance node and
// returns the selected nodes. Compile and evaluation failures surface as
// errors so the caller can convert them to evidence.
func (a *FHIRPathAdapter) Select(_ context.Context, expression string, node element.Node) ([]element.Node, error) {
	compiled, err := a.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}

	data, err := element.ToJSON(node)
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}

	result, err := compiled.Evaluate(data)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}

	nodes := make([]element.Node, 0, len(result))
	for _, item := range result {
		converted, err := resultNode(item)
		if err != nil {
			return nil, fmt.Errorf("decode result of %q: %w", expression, err)
		}
		nodes = append(nodes, converted)
	}
	return nodes, nil
}

// EvaluateBool evaluates an expression as a boolean using FHIRPath
// truthiness rules: an empty collection is false, a single boolean is
// itself, and any other non-empty collection is true.
func (a *FHIRPathAdapter) EvaluateBool(_ context.Context, expression string, node element.Node) (bool, error) {
	compiled, err := a.getOrCompile(expression)
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", expression, err)
	}

	data, err := element.ToJSON(node)
	if err != nil {
		return false, fmt.Errorf("encode instance: %w", err)
	}

	result, err := compiled.Evaluate(data)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}

	if len(result) == 0 {
		return false, nil
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool(), nil
		}
	}
	return true, nil
}

// getOrCompile returns a cached compiled expression or compiles a new one.
func (a *FHIRPathAdapter) getOrCompile(expression string) (*fhirpath.Expression, error) {
	a.mu.RLock()
	compiled, ok := a.cache[expression]
	a.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[expression] = compiled
	a.mu.Unlock()
	return compiled, nil
}

// resultNode rebuilds an instance node from one FHIRPath result value via
// its JSON form.
func resultNode(item any) (element.Node, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return element.FromAny(v), nil
}

// ClearCache drops all compiled expressions.
func (a *FHIRPathAdapter) ClearCache() {
	a.mu.Lock()
	a.cache = make(map[string]*fhirpath.Expression)
	a.mu.Unlock()
}

// CacheSize returns the number of cached expressions.
func (a *FHIRPathAdapter) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// Verify interface compliance
var _ assertion.PathEvaluator = (*FHIRPathAdapter)(nil)

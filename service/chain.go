package service

import (
	"context"
	"errors"

	"github.com/gofhir/conformance/assertion"
	"github.com/gofhir/conformance/element"
)

// ErrNotSupported is returned when a service cannot answer a request kind.
var ErrNotSupported = errors.New("operation not supported")

// --- Schema Chain ---

// SchemaChain implements assertion.SchemaResolver by trying multiple
// resolvers in order, Chain of Responsibility style.
type SchemaChain struct {
	resolvers []assertion.SchemaResolver
}

// NewSchemaChain creates a new schema chain.
func NewSchemaChain(resolvers ...assertion.SchemaResolver) *SchemaChain {
	return &SchemaChain{resolvers: resolvers}
}

// ResolveSchema tries each resolver until one succeeds.
func (c *SchemaChain) ResolveSchema(ctx context.Context, uri string) (*assertion.Schema, error) {
	for _, resolver := range c.resolvers {
		schema, err := resolver.ResolveSchema(ctx, uri)
		if err == nil && schema != nil {
			return schema, nil
		}
		// A miss moves on; a real fault stops the chain.
		if err != nil && !errors.Is(err, assertion.ErrNotFound) {
			return nil, err
		}
	}
	return nil, assertion.ErrNotFound
}

// Add appends a resolver to the chain.
func (c *SchemaChain) Add(resolver assertion.SchemaResolver) {
	c.resolvers = append(c.resolvers, resolver)
}

// --- Reference Chain ---

// ReferenceChain implements assertion.ReferenceResolver by trying multiple
// resolvers in order.
type ReferenceChain struct {
	resolvers []assertion.ReferenceResolver
}

// NewReferenceChain creates a new reference chain.
func NewReferenceChain(resolvers ...assertion.ReferenceResolver) *ReferenceChain {
	return &ReferenceChain{resolvers: resolvers}
}

// ResolveExternal tries each resolver until one succeeds.
func (c *ReferenceChain) ResolveExternal(ctx context.Context, reference string) (element.Node, error) {
	for _, resolver := range c.resolvers {
		node, err := resolver.ResolveExternal(ctx, reference)
		if err == nil && node != nil {
			return node, nil
		}
		if err != nil && !errors.Is(err, assertion.ErrNotFound) {
			return nil, err
		}
	}
	return nil, assertion.ErrNotFound
}

// Add appends a resolver to the chain.
func (c *ReferenceChain) Add(resolver assertion.ReferenceResolver) {
	c.resolvers = append(c.resolvers, resolver)
}

// --- Terminology Chain ---

// TerminologyChain implements assertion.TerminologyService by trying
// multiple services. A service that does not know the value set signals
// ErrNotSupported or assertion.ErrNotFound and the next one is consulted.
type TerminologyChain struct {
	services []assertion.TerminologyService
}

// NewTerminologyChain creates a new terminology chain.
func NewTerminologyChain(services ...assertion.TerminologyService) *TerminologyChain {
	return &TerminologyChain{services: services}
}

// ValidateCode tries each service until one answers.
func (c *TerminologyChain) ValidateCode(ctx context.Context, req assertion.ValidateCodeRequest) (assertion.ValidateCodeResult, error) {
	for _, svc := range c.services {
		result, err := svc.ValidateCode(ctx, req)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrNotSupported) && !errors.Is(err, assertion.ErrNotFound) {
			return assertion.ValidateCodeResult{}, err
		}
	}
	return assertion.ValidateCodeResult{}, ErrNotSupported
}

// Add appends a service to the chain.
func (c *TerminologyChain) Add(service assertion.TerminologyService) {
	c.services = append(c.services, service)
}

// --- Null Implementations ---

// NullSchemaResolver always reports a miss.
type NullSchemaResolver struct{}

// ResolveSchema always returns assertion.ErrNotFound.
func (NullSchemaResolver) ResolveSchema(_ context.Context, _ string) (*assertion.Schema, error) {
	return nil, assertion.ErrNotFound
}

// NullReferenceResolver always reports a miss.
type NullReferenceResolver struct{}

// ResolveExternal always returns assertion.ErrNotFound.
func (NullReferenceResolver) ResolveExternal(_ context.Context, _ string) (element.Node, error) {
	return nil, assertion.ErrNotFound
}

// NullTerminologyService accepts every code (permissive default).
type NullTerminologyService struct{}

// ValidateCode always answers OK.
func (NullTerminologyService) ValidateCode(_ context.Context, _ assertion.ValidateCodeRequest) (assertion.ValidateCodeResult, error) {
	return assertion.ValidateCodeResult{OK: true}, nil
}

// Verify interface compliance
var (
	_ assertion.SchemaResolver     = (*SchemaChain)(nil)
	_ assertion.ReferenceResolver  = (*ReferenceChain)(nil)
	_ assertion.TerminologyService = (*TerminologyChain)(nil)
	_ assertion.SchemaResolver     = NullSchemaResolver{}
	_ assertion.ReferenceResolver  = NullReferenceResolver{}
	_ assertion.TerminologyService = NullTerminologyService{}
)

package service

import (
	"context"
	"strings"

	"github.com/gofhir/conformance/assertion"
	"github.com/gofhir/conformance/cache"
)

// CachingSchemaResolver wraps a SchemaResolver with an LRU cache. Misses are
// not cached, so a resolver that later learns a URI is consulted again.
type CachingSchemaResolver struct {
	resolver assertion.SchemaResolver
	cache    *cache.Cache[string, *assertion.Schema]
}

// NewCachingSchemaResolver creates a caching wrapper with the given capacity.
func NewCachingSchemaResolver(resolver assertion.SchemaResolver, capacity int) *CachingSchemaResolver {
	return &CachingSchemaResolver{
		resolver: resolver,
		cache:    cache.New[string, *assertion.Schema](capacity),
	}
}

// ResolveSchema checks the cache first, then calls the wrapped resolver.
func (c *CachingSchemaResolver) ResolveSchema(ctx context.Context, uri string) (*assertion.Schema, error) {
	if schema, ok := c.cache.Get(uri); ok {
		return schema, nil
	}
	schema, err := c.resolver.ResolveSchema(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.cache.Set(uri, schema)
	return schema, nil
}

// Stats exposes the underlying cache counters.
func (c *CachingSchemaResolver) Stats() cache.Stats {
	return c.cache.Stats()
}

// CachingTerminologyService wraps a TerminologyService with an LRU cache of
// validation verdicts keyed by value set, code, and system.
type CachingTerminologyService struct {
	service assertion.TerminologyService
	cache   *cache.Cache[string, assertion.ValidateCodeResult]
}

// NewCachingTerminologyService creates a caching wrapper with the given
// capacity.
func NewCachingTerminologyService(service assertion.TerminologyService, capacity int) *CachingTerminologyService {
	return &CachingTerminologyService{
		service: service,
		cache:   cache.New[string, assertion.ValidateCodeResult](capacity),
	}
}

// ValidateCode checks the cache first, then calls the wrapped service.
func (c *CachingTerminologyService) ValidateCode(ctx context.Context, req assertion.ValidateCodeRequest) (assertion.ValidateCodeResult, error) {
	key := validationKey(req)
	if result, ok := c.cache.Get(key); ok {
		return result, nil
	}
	result, err := c.service.ValidateCode(ctx, req)
	if err != nil {
		return assertion.ValidateCodeResult{}, err
	}
	c.cache.Set(key, result)
	return result, nil
}

// Stats exposes the underlying cache counters.
func (c *CachingTerminologyService) Stats() cache.Stats {
	return c.cache.Stats()
}

func validationKey(req assertion.ValidateCodeRequest) string {
	var b strings.Builder
	b.WriteString(req.ValueSet)
	writeCoding := func(coding assertion.Coding) {
		b.WriteByte('|')
		b.WriteString(coding.System)
		b.WriteByte('#')
		b.WriteString(coding.Code)
	}
	if req.Coding != nil {
		writeCoding(*req.Coding)
	}
	for _, coding := range req.Concept.Codings {
		writeCoding(coding)
	}
	if req.Concept.Text != "" {
		b.WriteString("|text:")
		b.WriteString(req.Concept.Text)
	}
	if req.AbstractAllowed {
		b.WriteString("|abstract")
	}
	return b.String()
}

// Verify interface compliance
var (
	_ assertion.SchemaResolver     = (*CachingSchemaResolver)(nil)
	_ assertion.TerminologyService = (*CachingTerminologyService)(nil)
)

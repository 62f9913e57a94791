// Package registry holds schema definitions and resolves them by canonical
// URI, including subschema anchors addressed as "uri#anchor".
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gofhir/conformance/assertion"
)

// InMemory is a thread-safe schema registry keyed by canonical URI.
type InMemory struct {
	mu      sync.RWMutex
	schemas map[string]*assertion.Schema
}

// NewInMemory creates an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{schemas: make(map[string]*assertion.Schema)}
}

// Register adds a schema under its canonical URL. Registering a second
// schema under the same URL is an error; identity must stay unambiguous.
func (r *InMemory) Register(schema *assertion.Schema) error {
	if schema == nil {
		return fmt.Errorf("registry: cannot register a nil schema")
	}
	url := schema.URL()
	if url == "" {
		return fmt.Errorf("registry: schema has no canonical URL")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[url]; exists {
		return fmt.Errorf("registry: schema %q already registered", url)
	}
	r.schemas[url] = schema
	return nil
}

// MustRegister is Register for static schema tables; it panics on error.
func (r *InMemory) MustRegister(schema *assertion.Schema) {
	if err := r.Register(schema); err != nil {
		panic(err)
	}
}

// ResolveSchema implements assertion.SchemaResolver. A URI of the form
// "url#anchor" resolves the schema at url and then the named subschema
// inside it.
func (r *InMemory) ResolveSchema(_ context.Context, uri string) (*assertion.Schema, error) {
	url, anchor := splitAnchor(uri)

	r.mu.RLock()
	schema, ok := r.schemas[url]
	r.mu.RUnlock()
	if !ok {
		return nil, assertion.ErrNotFound
	}
	if anchor == "" {
		return schema, nil
	}

	sub := schema.FindAnchor(anchor)
	if sub == nil {
		return nil, assertion.ErrNotFound
	}
	return sub, nil
}

// URLs returns the registered canonical URLs in sorted order.
func (r *InMemory) URLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	urls := make([]string, 0, len(r.schemas))
	for url := range r.schemas {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Len returns the number of registered schemas.
func (r *InMemory) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

func splitAnchor(uri string) (url, anchor string) {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i], uri[i+1:]
	}
	return uri, ""
}

// Verify interface compliance
var _ assertion.SchemaResolver = (*InMemory)(nil)

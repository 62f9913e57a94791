package terminology

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/conformance/assertion"
)

// InMemoryService implements assertion.TerminologyService against value sets
// and code systems held in memory.
type InMemoryService struct {
	mu          sync.RWMutex
	valueSets   map[string]*valueSetData
	codeSystems map[string]*codeSystemData
}

// valueSetData holds the membership index of one value set.
type valueSetData struct {
	url      string
	codes    map[string]map[string]codeEntry // system -> code -> entry
	filters  []pendingFilter
	expanded bool
}

// codeSystemData holds one code system with its subsumption hierarchy.
type codeSystemData struct {
	url      string
	codes    map[string]codeEntry
	children map[string][]string
}

type codeEntry struct {
	code     string
	display  string
	system   string
	abstract bool
}

// pendingFilter is a compose filter kept for lazy expansion against a code
// system that may be loaded later.
type pendingFilter struct {
	system   string
	property string
	op       string
	value    string
}

// NewInMemory creates an empty in-memory terminology service.
func NewInMemory() *InMemoryService {
	return &InMemoryService{
		valueSets:   make(map[string]*valueSetData),
		codeSystems: make(map[string]*codeSystemData),
	}
}

// AddCodes registers a flat value set: every code is a member regardless of
// system. Handy for tests and small fixed vocabularies.
func (s *InMemoryService) AddCodes(valueSetURL, system string, codes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := s.valueSets[valueSetURL]
	if vs == nil {
		vs = &valueSetData{url: valueSetURL, codes: make(map[string]map[string]codeEntry), expanded: true}
		s.valueSets[valueSetURL] = vs
	}
	if vs.codes[system] == nil {
		vs.codes[system] = make(map[string]codeEntry)
	}
	for _, code := range codes {
		vs.codes[system][code] = codeEntry{code: code, system: system}
	}
}

// ValidateCode implements assertion.TerminologyService. A value set the
// service has never seen is a miss (assertion.ErrNotFound), so chains can
// consult the next service; a lone service's miss surfaces as a fault and is
// downgraded to evidence by the binding validator.
func (s *InMemoryService) ValidateCode(ctx context.Context, req assertion.ValidateCodeRequest) (assertion.ValidateCodeResult, error) {
	select {
	case <-ctx.Done():
		return assertion.ValidateCodeResult{}, ctx.Err()
	default:
	}

	url := stripVersionFromURL(req.ValueSet)
	if url == "" {
		return assertion.ValidateCodeResult{}, fmt.Errorf("terminology: no value set in request")
	}

	if err := s.ensureExpanded(url); err != nil {
		return assertion.ValidateCodeResult{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vs, ok := s.valueSets[url]
	if !ok {
		return assertion.ValidateCodeResult{}, assertion.ErrNotFound
	}

	candidates := req.Concept.Codings
	if req.Coding != nil {
		candidates = []assertion.Coding{*req.Coding}
	}

	for _, coding := range candidates {
		entry, found := vs.lookup(coding.System, coding.Code)
		if !found {
			continue
		}
		if entry.abstract && !req.AbstractAllowed {
			return assertion.ValidateCodeResult{
				OK:      false,
				Message: fmt.Sprintf("code '%s' is abstract and not selectable here", coding.Code),
			}, nil
		}
		return assertion.ValidateCodeResult{OK: true}, nil
	}

	return assertion.ValidateCodeResult{
		OK:      false,
		Message: fmt.Sprintf("none of the provided codes are in value set '%s'", url),
	}, nil
}

// lookup finds a code, searching all systems when none was given.
func (vs *valueSetData) lookup(system, code string) (codeEntry, bool) {
	if code == "" {
		return codeEntry{}, false
	}
	if system != "" {
		entry, ok := vs.codes[system][code]
		return entry, ok
	}
	for _, systemCodes := range vs.codes {
		if entry, ok := systemCodes[code]; ok {
			return entry, true
		}
	}
	return codeEntry{}, false
}

// LoadR4ValueSet loads an R4 ValueSet artifact. An expansion is used as-is;
// otherwise the compose is indexed, with filters kept for lazy expansion.
func (s *InMemoryService) LoadR4ValueSet(vs *r4.ValueSet) error {
	if vs == nil || vs.Url == nil {
		return fmt.Errorf("terminology: valueset is nil or has no URL")
	}

	data := &valueSetData{
		url:   *vs.Url,
		codes: make(map[string]map[string]codeEntry),
	}

	if vs.Expansion != nil {
		for i := range vs.Expansion.Contains {
			indexExpansion(&vs.Expansion.Contains[i], data)
		}
		data.expanded = true
	} else if vs.Compose != nil {
		indexCompose(vs.Compose, data)
	}

	s.mu.Lock()
	s.valueSets[data.url] = data
	s.mu.Unlock()
	return nil
}

// LoadR4CodeSystem loads an R4 CodeSystem artifact, indexing codes and the
// subsumedBy hierarchy used by is-a and descendent-of filters.
func (s *InMemoryService) LoadR4CodeSystem(cs *r4.CodeSystem) error {
	if cs == nil || cs.Url == nil {
		return fmt.Errorf("terminology: codesystem is nil or has no URL")
	}

	data := &codeSystemData{
		url:      *cs.Url,
		codes:    make(map[string]codeEntry),
		children: make(map[string][]string),
	}
	indexConcepts(cs.Concept, data)

	s.mu.Lock()
	s.codeSystems[data.url] = data
	s.mu.Unlock()
	return nil
}

func indexExpansion(contains *r4.ValueSetExpansionContains, data *valueSetData) {
	if contains.Code != nil && contains.System != nil {
		system := *contains.System
		if data.codes[system] == nil {
			data.codes[system] = make(map[string]codeEntry)
		}
		entry := codeEntry{code: *contains.Code, system: system}
		if contains.Display != nil {
			entry.display = *contains.Display
		}
		if contains.Abstract != nil {
			entry.abstract = *contains.Abstract
		}
		data.codes[system][entry.code] = entry
	}
	for i := range contains.Contains {
		indexExpansion(&contains.Contains[i], data)
	}
}

func indexCompose(compose *r4.ValueSetCompose, data *valueSetData) {
	for i := range compose.Include {
		include := &compose.Include[i]
		if include.System == nil {
			continue
		}
		system := *include.System
		if data.codes[system] == nil {
			data.codes[system] = make(map[string]codeEntry)
		}

		for j := range include.Concept {
			concept := &include.Concept[j]
			if concept.Code == nil {
				continue
			}
			entry := codeEntry{code: *concept.Code, system: system}
			if concept.Display != nil {
				entry.display = *concept.Display
			}
			data.codes[system][entry.code] = entry
		}

		for _, filter := range include.Filter {
			if filter.Property == nil || filter.Op == nil || filter.Value == nil {
				continue
			}
			data.filters = append(data.filters, pendingFilter{
				system:   system,
				property: *filter.Property,
				op:       string(*filter.Op),
				value:    *filter.Value,
			})
		}

		// A bare include pulls in the whole code system.
		if len(include.Concept) == 0 && len(include.Filter) == 0 {
			data.filters = append(data.filters, pendingFilter{system: system, op: "include-all"})
		}
	}
}

func indexConcepts(concepts []r4.CodeSystemConcept, data *codeSystemData) {
	for i := range concepts {
		concept := &concepts[i]
		if concept.Code == nil {
			continue
		}
		entry := codeEntry{code: *concept.Code, system: data.url}
		if concept.Display != nil {
			entry.display = *concept.Display
		}
		data.codes[entry.code] = entry

		for _, prop := range concept.Property {
			if prop.Code != nil && *prop.Code == "subsumedBy" && prop.ValueCode != nil {
				data.children[*prop.ValueCode] = append(data.children[*prop.ValueCode], entry.code)
			}
		}

		if len(concept.Concept) > 0 {
			indexConcepts(concept.Concept, data)
		}
	}
}

// ensureExpanded materializes pending compose filters, double-checked so
// concurrent validations expand each value set once.
func (s *InMemoryService) ensureExpanded(url string) error {
	s.mu.RLock()
	vs, ok := s.valueSets[url]
	if !ok || vs.expanded || len(vs.filters) == 0 {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok = s.valueSets[url]
	if !ok || vs.expanded {
		return nil
	}

	for _, filter := range vs.filters {
		cs, ok := s.codeSystems[filter.system]
		if !ok {
			continue
		}
		if vs.codes[filter.system] == nil {
			vs.codes[filter.system] = make(map[string]codeEntry)
		}

		switch {
		case filter.op == "include-all":
			for code, entry := range cs.codes {
				vs.codes[filter.system][code] = entry
			}
		case filter.property == "concept" && (filter.op == "is-a" || filter.op == "descendent-of"):
			for _, code := range cs.descendants(filter.value, filter.op == "is-a") {
				if entry, ok := cs.codes[code]; ok {
					vs.codes[filter.system][code] = entry
				}
			}
		case filter.property == "code" && filter.op == "regex":
			re, err := regexp.Compile(filter.value)
			if err != nil {
				continue
			}
			for code, entry := range cs.codes {
				if re.MatchString(code) {
					vs.codes[filter.system][code] = entry
				}
			}
		case filter.property == "code" && filter.op == "=":
			if entry, ok := cs.codes[filter.value]; ok {
				vs.codes[filter.system][filter.value] = entry
			}
		}
	}

	vs.expanded = true
	return nil
}

// descendants walks the subsumption hierarchy below start.
func (cs *codeSystemData) descendants(start string, includeSelf bool) []string {
	var result []string
	visited := make(map[string]bool)

	var walk func(code string)
	walk = func(code string) {
		if visited[code] {
			return
		}
		visited[code] = true
		if includeSelf || code != start {
			result = append(result, code)
		}
		for _, child := range cs.children[code] {
			walk(child)
		}
	}
	walk(start)
	return result
}

// CountValueSets returns the number of loaded value sets.
func (s *InMemoryService) CountValueSets() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.valueSets)
}

// CountCodeSystems returns the number of loaded code systems.
func (s *InMemoryService) CountCodeSystems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codeSystems)
}

// stripVersionFromURL removes a "|version" suffix from a canonical URL.
func stripVersionFromURL(url string) string {
	if idx := strings.LastIndex(url, "|"); idx != -1 {
		return url[:idx]
	}
	return url
}

// Verify interface compliance
var _ assertion.TerminologyService = (*InMemoryService)(nil)

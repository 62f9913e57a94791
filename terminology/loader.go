package terminology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/conformance/logger"
)

// LoadStats counts the artifacts taken in by a bulk load.
type LoadStats struct {
	CodeSystemsLoaded int
	ValueSetsLoaded   int
	Errors            int
}

// LoadJSON loads a terminology artifact from JSON. Bundles, single
// ValueSets, and single CodeSystems are all accepted.
func (s *InMemoryService) LoadJSON(data []byte) (*LoadStats, error) {
	stats := &LoadStats{}

	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("terminology: invalid JSON: %w", err)
	}

	switch probe.ResourceType {
	case "Bundle":
		s.loadBundle(data, stats)

	case "CodeSystem":
		var cs r4.CodeSystem
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("terminology: parse CodeSystem: %w", err)
		}
		if err := s.LoadR4CodeSystem(&cs); err != nil {
			stats.Errors++
			return stats, err
		}
		stats.CodeSystemsLoaded++

	case "ValueSet":
		var vs r4.ValueSet
		if err := json.Unmarshal(data, &vs); err != nil {
			return nil, fmt.Errorf("terminology: parse ValueSet: %w", err)
		}
		if err := s.LoadR4ValueSet(&vs); err != nil {
			stats.Errors++
			return stats, err
		}
		stats.ValueSetsLoaded++

	default:
		return nil, fmt.Errorf("terminology: unsupported resourceType %q", probe.ResourceType)
	}

	return stats, nil
}

// LoadDirectory loads every .json artifact in a directory, code systems
// first so value set filters can expand against them.
func (s *InMemoryService) LoadDirectory(dir string) (*LoadStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("terminology: read directory: %w", err)
	}

	stats := &LoadStats{}
	var valueSetFiles []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("could not read %s: %v", path, err)
			stats.Errors++
			continue
		}

		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			logger.Warn("skipping %s: %v", path, err)
			stats.Errors++
			continue
		}

		switch probe.ResourceType {
		case "CodeSystem":
			var cs r4.CodeSystem
			if err := json.Unmarshal(data, &cs); err != nil || s.LoadR4CodeSystem(&cs) != nil {
				logger.Warn("skipping code system %s", path)
				stats.Errors++
				continue
			}
			stats.CodeSystemsLoaded++
		case "ValueSet":
			valueSetFiles = append(valueSetFiles, path)
		}
	}

	for _, path := range valueSetFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("could not read %s: %v", path, err)
			stats.Errors++
			continue
		}
		var vs r4.ValueSet
		if err := json.Unmarshal(data, &vs); err != nil || s.LoadR4ValueSet(&vs) != nil {
			logger.Warn("skipping value set %s", path)
			stats.Errors++
			continue
		}
		stats.ValueSetsLoaded++
	}

	logger.Info("loaded %d code systems and %d value sets from %s",
		stats.CodeSystemsLoaded, stats.ValueSetsLoaded, dir)

	return stats, nil
}

// loadBundle indexes every ValueSet and CodeSystem entry of a bundle.
func (s *InMemoryService) loadBundle(data []byte, stats *LoadStats) {
	var bundle struct {
		Entry []struct {
			Resource json.RawMessage `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		stats.Errors++
		return
	}

	for _, entry := range bundle.Entry {
		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &probe); err != nil {
			continue
		}
		switch probe.ResourceType {
		case "CodeSystem":
			var cs r4.CodeSystem
			if err := json.Unmarshal(entry.Resource, &cs); err != nil || s.LoadR4CodeSystem(&cs) != nil {
				stats.Errors++
				continue
			}
			stats.CodeSystemsLoaded++
		case "ValueSet":
			var vs r4.ValueSet
			if err := json.Unmarshal(entry.Resource, &vs); err != nil || s.LoadR4ValueSet(&vs) != nil {
				stats.Errors++
				continue
			}
			stats.ValueSetsLoaded++
		}
	}
}

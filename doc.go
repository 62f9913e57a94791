// Package conformance provides assertion-based validation of structured
// healthcare data against declarative conformance profiles.
//
// Profiles are compiled (by an external compiler) into immutable trees of
// composable assertions. The engine in this module evaluates such a tree
// over an instance and produces a Report: a success/failure verdict plus an
// ordered list of evidence.
//
// # Quick Start
//
//	import (
//	    "github.com/gofhir/conformance/element"
//	    "github.com/gofhir/conformance/engine"
//	    "github.com/gofhir/conformance/registry"
//	)
//
//	reg := registry.NewInMemory()
//	reg.MustRegister(patientSchema)
//
//	validator, err := engine.New(reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	node, _ := element.FromJSON(instanceJSON)
//	report, err := validator.Validate(ctx, "http://example.org/schema/patient", node)
//	if report.Failed() {
//	    for _, issue := range report.Errors() {
//	        fmt.Println(issue)
//	    }
//	}
//
// # Architecture
//
// The packages compose leaf to root:
//
//   - conformance (this package): Issue, diagnostic catalog, Report
//   - element: the read-only instance-node contract and a JSON-backed form
//   - assertion: the rule tree: primitives, composites, slicing, schema
//     references, cross-instance reference checking, terminology bindings
//   - service: chains and caching wrappers for external collaborators
//   - registry: in-memory schema registry with anchor lookup
//   - terminology: in-memory terminology service
//   - engine: the top-level validator entry point
//   - worker: concurrent batch validation
//
// Assertion and schema trees are immutable once built and safe to share
// across concurrent validations. External collaborators (schema resolution,
// reference resolution, terminology) are the only I/O-bound call sites; any
// fault they raise is converted into report evidence, never propagated.
package conformance

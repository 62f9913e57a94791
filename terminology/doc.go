// Package terminology provides an in-memory terminology service backed by
// FHIR R4 ValueSet and CodeSystem artifacts, including lazy expansion of
// compose filters against loaded code systems.
package terminology

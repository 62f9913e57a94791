// Package element defines the read-only instance-node contract consumed by
// the validation engine, plus JSON- and map-backed implementations.
//
// A Node exposes a declared type name, an optional primitive value, ordered
// named children, a stable diagnostic location, and same-document reference
// resolution (contained and bundled lookup). The engine treats nodes as
// immutable; many validations may traverse the same tree concurrently.
package element

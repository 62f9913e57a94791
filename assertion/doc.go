// Package assertion implements the compiled validation tree: primitive
// value rules, cardinality, composition, slicing, schema references,
// cross-instance references with cycle detection, and terminology bindings.
//
// Assertions are immutable once constructed and safe to share between
// concurrent validations. Invalid rule parameters are rejected at
// construction time; evaluating a well-formed assertion never fails on bad
// data, it reports evidence instead. Errors returned from Validate and
// ValidateGroup mean the caller broke the contract, typically by omitting a
// required collaborator.
package assertion

// Package service provides pluggable collaborator implementations for the
// validation engine: chain-of-responsibility composition, LRU caching
// wrappers, permissive null implementations, and a FHIRPath adapter for
// path selection.
package service

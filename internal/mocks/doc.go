// Package mocks provides centralized mock implementations for testing.
//
// Instead of defining inline mocks in individual test files, these
// standardized implementations are shared across test packages. Two
// styles live here: function-field mocks for the pluggable capabilities
// (object store, transcriber, extractor, token validation) and fully
// functional in-memory stores for the job and task tables, which the
// worker concurrency tests need to exercise real claim semantics.
package mocks

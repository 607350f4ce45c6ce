// Package postgres provides PostgreSQL implementations of the store
// interfaces. Job status transitions are expressed as conditional updates
// guarded on the expected prior status, which is what makes worker claims
// and registrar upserts safe under concurrency.
package postgres

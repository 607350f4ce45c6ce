// Package objectstore defines the boundary interface for the blob store
// holding uploaded audio. The production implementation is Google Cloud
// Storage under internal/platform/gcs.
package objectstore

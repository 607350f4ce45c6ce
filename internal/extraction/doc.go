// Package extraction defines the boundary interface for natural-language
// task extraction from transcripts. Concrete implementations live under
// internal/platform.
package extraction

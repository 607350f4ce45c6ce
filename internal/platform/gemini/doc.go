// Package gemini provides Gemini-backed implementations of the
// transcription and extraction capability interfaces. Both share the same
// client configuration and retry behavior: exponential backoff with
// jitter for transient API failures, immediate return for permanent ones
// (safety blocks, malformed responses).
package gemini

// Package api implements the HTTP handlers for the voice-note job
// pipeline: issuing upload grants, registering confirmed uploads, and
// reading job and task state. Handlers translate between HTTP and the
// service layer and never touch pipeline state directly.
package api

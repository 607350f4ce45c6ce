package extraction

import "errors"

// Common errors returned by extractor implementations.
var (
	// ErrExtractionFailed is returned when task extraction fails for any
	// general reason.
	ErrExtractionFailed = errors.New("failed to extract tasks from transcript")

	// ErrInvalidResponse is returned when the model response cannot be
	// parsed into task candidates.
	ErrInvalidResponse = errors.New("invalid response from extraction service")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during task extraction")

	// ErrInvalidConfig is returned when the extractor configuration is invalid.
	ErrInvalidConfig = errors.New("invalid extractor configuration")
)

package writer

import "errors"

var (
	// ErrNotConfigured means no text-generation backend is available.
	ErrNotConfigured = errors.New("text generation is not configured")
	// ErrMissingInput means a required input field is empty.
	ErrMissingInput = errors.New("required input is missing")
	// ErrMalformedDraft means the generated content failed schema validation.
	ErrMalformedDraft = errors.New("generated draft is malformed")
)

package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by every layer. Wrap them with goerr.Wrap to add
// context; callers test with errors.Is.
var (
	// ErrValidation is returned for malformed input (filters, empty text, unknown origin)
	// before any retrieval or indexing work starts.
	ErrValidation = goerr.New("validation error")

	// ErrUpstream is returned when an embedding, language model or transcription call fails.
	// The request may be retried.
	ErrUpstream = goerr.New("upstream service error")

	// ErrNotFound is returned when a source document does not exist
	ErrNotFound = goerr.New("not found")

	// ErrUnsupportedMedia is returned for uploads whose type cannot be turned into text
	ErrUnsupportedMedia = goerr.New("unsupported media type")

	// ErrUnavailable is returned when an optional collaborator is not configured
	ErrUnavailable = goerr.New("service unavailable")
)

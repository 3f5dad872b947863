package pipeline

import "errors"

var (
	// ErrCancelled is returned when the request was cancelled or its
	// deadline passed before a complete document was produced. It wraps the
	// context error.
	ErrCancelled = errors.New("analysis cancelled")

	// ErrIncompleteRun is returned when a run finished without a terminal
	// result for every registered adapter.
	ErrIncompleteRun = errors.New("analysis run incomplete")

	// ErrNoImage is returned by steps that need an ingested image.
	ErrNoImage = errors.New("no ingested image")
)

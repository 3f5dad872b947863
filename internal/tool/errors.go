package tool

import "errors"

var (
	// ErrNotInstalled is returned by a Runner when the executable is absent.
	ErrNotInstalled = errors.New("executable not installed")

	// ErrDuplicateAdapter is returned when two adapters share an ID.
	ErrDuplicateAdapter = errors.New("duplicate adapter id")

	// ErrUnknownAdapter is returned when configuration names an adapter
	// that is not in the catalog.
	ErrUnknownAdapter = errors.New("unknown adapter id")
)

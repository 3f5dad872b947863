package imaging

import (
	"errors"
	"fmt"
)

// Sentinel errors for ingestion failures.
// Use errors.Is to match them through a *DecodeError.
var (
	// ErrEmptyInput is returned when the upload has no bytes.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnsupportedFormat is returned when no supported signature matches.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrCorruptImage is returned when the decoder rejects the bytes.
	ErrCorruptImage = errors.New("corrupt image data")

	// ErrZeroDimension is returned when the decoded image has no pixels.
	ErrZeroDimension = errors.New("image has a zero dimension")

	// ErrImageTooLarge is returned when the declared pixel count exceeds
	// the configured limit. It is checked before the pixel data is decoded.
	ErrImageTooLarge = errors.New("image exceeds the pixel limit")
)

// DecodeError describes why an upload could not be ingested.
// It is the only error type Ingest returns.
type DecodeError struct {
	// Filename is the client-supplied name, for messages only.
	Filename string
	// Err is one of the sentinel errors above.
	Err error
	// Detail carries the underlying decoder message, if any.
	Detail string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("cannot ingest %q: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("cannot ingest %q: %v: %s", e.Filename, e.Err, e.Detail)
}

// Unwrap returns the sentinel error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

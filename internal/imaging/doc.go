// Package imaging implements the image ingestor: it turns the raw bytes of
// an upload into an immutable, decoded image handle.
//
// The container format is detected from magic bytes and the matching
// decoder is invoked directly. The client-supplied filename and content
// type are never consulted, so a PNG renamed to photo.jpg is still analyzed
// as a PNG and a text file renamed to photo.png is rejected.
//
// Supported formats:
//   - JPEG, PNG, GIF (standard library decoders)
//   - BMP, WEBP, TIFF (golang.org/x/image decoders)
//
// A Handle is safe to share between goroutines. Every accessor returns
// either a value or data that callers must treat as read-only.
package imaging

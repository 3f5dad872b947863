// Package tool implements the external tool adapters.
//
// Each adapter wraps one forensic utility (strings, exiftool, binwalk,
// steghide, zsteg, pngcheck, stegdetect, foremost, stegano) or one
// in-process library (go-exif) behind a uniform contract:
//
//	Run(ctx, Input) model.ToolResult
//
// Run never returns an error. A missing executable becomes
// model.StatusNotInstalled, a crash, a non-zero exit, or an unsupported
// input format becomes model.StatusError with a reason, and a normal
// run becomes model.StatusSuccess with a payload the scorer can interpret
// without re-parsing raw text.
//
// Execute wraps an adapter with a deadline and panic recovery so that a
// hung or misbehaving adapter can never stall an analysis run.
//
// Design decision: Processes are started through the Runner interface,
// never through a shell. The image path is always a single argv element,
// so nothing derived from the upload can be interpreted as shell syntax.
//
// The Registry is resolved once at startup from configuration and then
// shared read-only between requests.
package tool

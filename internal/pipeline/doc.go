// Package pipeline runs the analysis of an uploaded image from raw bytes to
// the response document.
//
// A request moves through a sequence of steps: ingestion, orchestration,
// scoring, assembly, and persistence. Each stage is implemented as a Step
// that receives the current Job and fills in its part of it.
//
// The Orchestrator is the fan-out/fan-in core of the analysis step. It runs
// the metadata extractor, the LSB analyzer, the bit-plane slicer, and every
// registered tool adapter concurrently. Each unit writes to its own
// pre-allocated slot, so the AnalysisRun needs no locking while the units
// run. External processes share a bounded pool; adapters queue for a slot
// rather than being rejected.
//
// Failure policy:
//   - An adapter failure, timeout, or absence is recorded as that adapter's
//     ToolResult and never aborts the run.
//   - Ingestion failure and request cancellation abort the request. On
//     cancellation no partial document is produced and the run's artifacts
//     are removed.
//
// The package supports both individual analyses (Engine) and batch
// processing with concurrency control using errgroup (BatchProcessor).
package pipeline

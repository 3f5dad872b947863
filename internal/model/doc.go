// Package model defines the core data structures shared by the deepvision
// analysis packages.
//
// This package contains the following main types:
//   - ImageInfo: Immutable descriptors of an ingested image
//   - ToolResult: The tagged outcome of one analysis tool
//   - LSBStats: Least-significant-bit statistics and their suspicion level
//   - AnalysisRun: Everything the orchestrator collected for one image
//   - FinalReport: The verdict, suspicion score, and summary
//   - Event: Progress notifications published while a run is in flight
//
// Values in this package are plain data. Nothing here performs I/O.
package model

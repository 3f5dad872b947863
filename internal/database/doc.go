// Package database provides SQLite-based storage for DeepVision.
//
// This package implements the AnalysisDB, which stores:
//   - Finished response documents, keyed by run ID
//   - Per-tool outcomes of every run, for host tooling statistics
//
// The history lets an investigator look up earlier verdicts and find
// previous analyses of the same file by its SHA3-256 fingerprint.
//
// The database is a single SQLite file (modernc.org/sqlite, no cgo) opened
// in WAL mode.
package database

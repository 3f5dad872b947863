// Package scoring implements the scoring and verdict synthesizer.
//
// Score folds an AnalysisRun into a FinalReport:
//
//  1. Each signal that fires contributes its weight from the Policy and one
//     human-readable line to the summary.
//  2. The sum is clamped to [0, 100].
//  3. The verdict is Suspicious iff the score exceeds
//     model.SuspicionThreshold.
//
// Signals are evaluated in a fixed order: metadata, then LSB statistics,
// then tools in registration order. The summary is therefore deterministic
// for a given run.
//
// Design decision: Every weight lives in one Policy value, never in the
// adapters. A policy can be loaded from the configuration file.
//
// Score is a pure function. It reads the run and performs no I/O.
package scoring

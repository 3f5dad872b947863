// Package lsb implements the least-significant-bit statistical analyzer.
//
// The analyzer reads the lowest bit of the red, green, and blue channel of
// every sampled pixel (alpha is ignored) and reports the fraction of those
// bits that are set. Natural images show a fraction close to 0.5; sequential
// or naive embedding skews it. The distance from 0.5 is mapped onto a
// suspicion level through an ordered threshold table.
//
// Design decision: Large images are sampled with a fixed row-major stride
// rather than randomly. Two runs over the same bytes therefore produce the
// same statistics, which keeps reports reproducible.
package lsb

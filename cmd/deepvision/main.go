// Package main provides the entry point for the DeepVision CLI.
//
// DeepVision is a forensic steganalysis tool. It runs external analyzers,
// LSB statistics and bit-plane rendering against images and reports
// whether they likely carry hidden data.
//
// Usage:
//
//	deepvision analyze <image> [image...]
//	deepvision serve
//
// See --help for all available options.
package main

// main is the entry point for DeepVision.
func main() {
	Execute()
}

// Package config provides configuration structures and utilities for
// DeepVision.
//
// Settings are resolved in four layers, each overriding the previous one:
//
//  1. Defaults from NewConfig
//  2. The YAML configuration file (.deepvision), see LoadConfigFile
//  3. DEEPVISION_* environment variables, optionally from a .env file
//  4. Command line flags, applied by the cmd package
//
// The configuration file also carries settings that have no flag: per-tool
// paths, arguments, and timeouts, scoring weights, LSB thresholds, and the
// rendered bit planes. Components helpers such as Adapters and Policy turn
// them into the options of the analysis packages.
package config

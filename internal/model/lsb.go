package model

import "strings"

// SuspicionLevel is the heuristic classification of LSB statistics.
//
// Design decision: The classification is an ordered enum so that scoring
// policies can compare levels (level >= SuspicionMedium) rather than
// matching strings.
type SuspicionLevel int

const (
	// SuspicionLow means the LSB mean is close to what natural images show.
	SuspicionLow SuspicionLevel = iota
	// SuspicionMedium means the LSB mean deviates noticeably.
	SuspicionMedium
	// SuspicionHigh means the LSB mean deviates strongly.
	SuspicionHigh
)

// String returns the wire representation of the level.
func (l SuspicionLevel) String() string {
	switch l {
	case SuspicionLow:
		return "Low"
	case SuspicionMedium:
		return "Medium"
	case SuspicionHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// ParseSuspicionLevel converts a wire name, case-insensitively, into a level.
func ParseSuspicionLevel(s string) (SuspicionLevel, bool) {
	switch strings.ToLower(s) {
	case "low":
		return SuspicionLow, true
	case "medium":
		return SuspicionMedium, true
	case "high":
		return SuspicionHigh, true
	default:
		return SuspicionLow, false
	}
}

// ChannelMeans holds the LSB mean of each color channel.
type ChannelMeans struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// LSBStats is the output of the LSB analyzer.
// Mean is always within [0, 1].
type LSBStats struct {
	// Mean is the fraction of sampled channel values whose lowest bit is set.
	Mean float64

	// Deviation is |Mean - 0.5|.
	Deviation float64

	// Level is the heuristic classification of Mean.
	Level SuspicionLevel

	// Entropy is the Shannon entropy (bits) of the pooled LSB distribution.
	// It approaches 1.0 when ones and zeros are equally frequent.
	Entropy float64

	// Channels breaks Mean down per color channel.
	Channels ChannelMeans

	// SampledPixels is the number of pixels that contributed to Mean.
	SampledPixels int

	// Stride is the row-major sampling stride. 1 means every pixel was read.
	Stride int

	// Error is set when the analyzer did not finish, e.g. "timeout".
	// The other fields are then neutral: Mean 0.5 and Level Low.
	Error string
}

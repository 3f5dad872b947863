package model

// SuspicionThreshold is the score above which an image is judged Suspicious.
// A score exactly equal to the threshold is still Safe.
const SuspicionThreshold = 50

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Verdict is the binary outcome of an analysis.
type Verdict int

const (
	// VerdictSafe means the score did not exceed SuspicionThreshold.
	VerdictSafe Verdict = iota
	// VerdictSuspicious means the score exceeded SuspicionThreshold.
	VerdictSuspicious
)

// String returns the wire representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictSafe:
		return "Safe"
	case VerdictSuspicious:
		return "Suspicious"
	default:
		return "Unknown"
	}
}

// ParseVerdict converts a wire string back to a Verdict.
func ParseVerdict(s string) (Verdict, bool) {
	switch s {
	case "Safe":
		return VerdictSafe, true
	case "Suspicious":
		return VerdictSuspicious, true
	default:
		return VerdictSafe, false
	}
}

// VerdictForScore applies the threshold rule. It is the only place the
// threshold is compared against a score.
func VerdictForScore(score int) Verdict {
	if score > SuspicionThreshold {
		return VerdictSuspicious
	}
	return VerdictSafe
}

// ClampScore bounds a raw score to [MinScore, MaxScore].
func ClampScore(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// FinalReport is the synthesized outcome of an analysis run.
type FinalReport struct {
	// Verdict is VerdictSuspicious iff SuspicionScore > SuspicionThreshold.
	Verdict Verdict

	// SuspicionScore is within [MinScore, MaxScore].
	SuspicionScore int

	// Summary lists one human-readable finding per signal that fired, in a
	// deterministic order. It is never empty.
	Summary []string

	// Degraded is true when fewer than half of the registered tools
	// completed with Success, so the score rests mostly on in-process
	// analysis.
	Degraded bool

	// Confidence is High, Medium, or Low depending on the share of tools
	// applicable to the image format that completed with Success.
	Confidence string
}

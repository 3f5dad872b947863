package scoring

import (
	"fmt"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/tool"
)

// Rule scores the result of one tool.
type Rule struct {
	// Points is added once when Count returns a positive value.
	Points int
	// Count returns how many findings of interest a result carries.
	// Nil means model.ToolResult.FindingCount.
	Count func(r model.ToolResult) int
	// Describe renders the summary line for n findings.
	Describe func(n int) string
}

// Policy holds every weight the scorer uses.
type Policy struct {
	// LSBPoints maps a suspicion level to its contribution.
	LSBPoints map[model.SuspicionLevel]int
	// TrailingDataPoints is added when bytes follow the end-of-image marker.
	TrailingDataPoints int
	// OversizedMetadataPoints is added when a metadata value is longer
	// than OversizedMetadataBytes.
	OversizedMetadataPoints int
	// OversizedMetadataBytes is the length threshold for metadata values.
	OversizedMetadataBytes int
	// Rules maps a tool ID to its rule. Tools without a rule never fire.
	Rules map[string]Rule
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// DefaultPolicy returns the built-in weights.
func DefaultPolicy() Policy {
	return Policy{
		LSBPoints: map[model.SuspicionLevel]int{
			model.SuspicionLow:    0,
			model.SuspicionMedium: 20,
			model.SuspicionHigh:   35,
		},
		TrailingDataPoints:      25,
		OversizedMetadataPoints: 10,
		OversizedMetadataBytes:  256,
		Rules: map[string]Rule{
			"strings": {
				Points: 10,
				Describe: func(n int) string {
					return fmt.Sprintf("Printable strings contain %s (key material, flags, or long base64 runs)", plural(n, "suspicious marker", "suspicious markers"))
				},
			},
			"exiftool": {
				Points: 15,
				Count: func(r model.ToolResult) int {
					n := 0
					for k := range r.Data() {
						if tool.IsExiftoolWarning(k) {
							n++
						}
					}
					return n
				},
				Describe: func(n int) string {
					return fmt.Sprintf("exiftool reported %s about the file structure", plural(n, "warning", "warnings"))
				},
			},
			"binwalk": {
				Points: 40,
				Describe: func(n int) string {
					return fmt.Sprintf("Embedded data signatures found inside the image (%s)", plural(n, "signature", "signatures"))
				},
			},
			"steghide": {
				Points: 45,
				Describe: func(int) string {
					return "steghide found an embedded payload"
				},
			},
			"zsteg": {
				Points: 40,
				Describe: func(n int) string {
					return fmt.Sprintf("zsteg decoded %s from low-order bits", plural(n, "payload candidate", "payload candidates"))
				},
			},
			"pngcheck": {
				Points: 15,
				Describe: func(n int) string {
					return fmt.Sprintf("pngcheck reported %s in the PNG structure", plural(n, "problem", "problems"))
				},
			},
			"stegdetect": {
				Points: 35,
				Describe: func(int) string {
					return "stegdetect identified a known JPEG embedding method"
				},
			},
			"foremost": {
				Points: 30,
				Describe: func(n int) string {
					return fmt.Sprintf("foremost carved %s out of the image", plural(n, "additional file", "additional files"))
				},
			},
			"stegano": {
				Points: 50,
				Describe: func(int) string {
					return "stegano revealed a hidden LSB message"
				},
			},
		},
	}
}

// WithWeights returns a copy of p with tool rule points overridden.
// Weights for tools without a rule are ignored.
func (p Policy) WithWeights(weights map[string]int) Policy {
	rules := make(map[string]Rule, len(p.Rules))
	for id, r := range p.Rules {
		if w, ok := weights[id]; ok {
			r.Points = w
		}
		rules[id] = r
	}
	p.Rules = rules
	return p
}

// WithLSBPoints returns a copy of p with the LSB level points overridden.
func (p Policy) WithLSBPoints(points map[model.SuspicionLevel]int) Policy {
	merged := make(map[model.SuspicionLevel]int, len(p.LSBPoints))
	for k, v := range p.LSBPoints {
		merged[k] = v
	}
	for k, v := range points {
		merged[k] = v
	}
	p.LSBPoints = merged
	return p
}

// Describe lists the policy's weights, one per line, for diagnostics.
func (p Policy) Describe(order []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "lsb: medium=%d high=%d\n", p.LSBPoints[model.SuspicionMedium], p.LSBPoints[model.SuspicionHigh])
	fmt.Fprintf(&b, "metadata: trailing=%d oversized=%d\n", p.TrailingDataPoints, p.OversizedMetadataPoints)
	for _, id := range order {
		if r, ok := p.Rules[id]; ok {
			fmt.Fprintf(&b, "%s: %d\n", id, r.Points)
		}
	}
	return b.String()
}

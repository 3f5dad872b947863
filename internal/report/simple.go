package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nao1215/deepvision/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with a colored verdict and
// clear section formatting.
//
// Colors are off unless WithColor(true) is given, so output piped to a file
// stays plain.
type SimpleWriter struct {
	baseWriter

	// color enables ANSI colors.
	color bool

	// verbose adds metadata and per-tool output lines.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.color = enabled
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the document in human-readable format.
func (w *SimpleWriter) Write(doc *Document) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, doc)
	w.writeVerdict(&sb, doc)
	w.writeLSB(&sb, doc)
	w.writeTools(&sb, doc)
	if w.verbose {
		w.writeMetadata(&sb, doc)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// paint returns a color honoring the writer's color setting.
func (w *SimpleWriter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if w.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(w.paint(color.Bold).Sprint(title))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with image information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, doc *Document) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    DEEPVISION ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "File:       %s\n", doc.Filename)
	fmt.Fprintf(sb, "Format:     %s (%s)\n", doc.Format, doc.Mode)
	fmt.Fprintf(sb, "Dimensions: %d x %d\n", doc.Dimensions[0], doc.Dimensions[1])
	fmt.Fprintf(sb, "Size:       %d bytes\n", doc.SizeBytes)
	if doc.Fingerprint != "" {
		fmt.Fprintf(sb, "SHA3-256:   %s\n", doc.Fingerprint)
	}
	sb.WriteString("\n")
}

// writeVerdict writes the verdict and summary.
func (w *SimpleWriter) writeVerdict(sb *strings.Builder, doc *Document) {
	w.section(sb, "VERDICT")

	final := doc.FinalReport
	verdictColor := w.paint(color.FgGreen, color.Bold)
	if doc.Verdict() == model.VerdictSuspicious {
		verdictColor = w.paint(color.FgRed, color.Bold)
	}
	fmt.Fprintf(sb, "  %s  (score %d/100, confidence %s)\n\n",
		verdictColor.Sprint(strings.ToUpper(final.Verdict)), final.SuspicionScore, doc.DeepvisionScore.Confidence)

	if final.Degraded {
		sb.WriteString("  ")
		sb.WriteString(w.paint(color.FgYellow).Sprint("[degraded] too few tools completed"))
		sb.WriteString("\n")
	}
	for _, line := range final.Summary {
		fmt.Fprintf(sb, "  * %s\n", line)
	}
	sb.WriteString("\n")
}

// writeLSB writes the LSB statistics.
func (w *SimpleWriter) writeLSB(sb *strings.Builder, doc *Document) {
	w.section(sb, "LSB ANALYSIS")

	lsb := doc.LSBAnalysis
	if lsb.Error != "" {
		fmt.Fprintf(sb, "  %s\n\n", w.paint(color.FgYellow).Sprintf("Incomplete: %s", lsb.Error))
		return
	}
	fmt.Fprintf(sb, "  Mean LSB:   %.4f\n", lsb.MeanLSBValue)
	fmt.Fprintf(sb, "  Suspicion:  %s\n", w.levelColor(lsb.HeuristicSuspicion).Sprint(lsb.HeuristicSuspicion))
	fmt.Fprintf(sb, "  Entropy:    %.4f\n", lsb.Entropy)
	if w.verbose {
		fmt.Fprintf(sb, "  Channels:   R %.4f  G %.4f  B %.4f\n",
			lsb.ChannelMeans.Red, lsb.ChannelMeans.Green, lsb.ChannelMeans.Blue)
		fmt.Fprintf(sb, "  Sampled:    %d pixels (stride %d)\n", lsb.SampledPixels, lsb.Stride)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) levelColor(level string) *color.Color {
	switch level {
	case model.SuspicionHigh.String():
		return w.paint(color.FgRed)
	case model.SuspicionMedium.String():
		return w.paint(color.FgYellow)
	default:
		return w.paint(color.FgGreen)
	}
}

// writeTools writes one line per tool.
func (w *SimpleWriter) writeTools(sb *strings.Builder, doc *Document) {
	w.section(sb, "TOOLS")

	for _, id := range doc.OrderedToolIDs() {
		tr := doc.ToolReports[id]
		fmt.Fprintf(sb, "  [%s] %-12s %s\n", w.statusIndicator(tr.Status), id, toolDetail(tr))
		if !w.verbose {
			continue
		}
		for _, line := range strings.Split(toolBody(tr), "\n") {
			if line != "" {
				fmt.Fprintf(sb, "      %s\n", truncateString(line, 100))
			}
		}
		for _, p := range tr.Planes {
			fmt.Fprintf(sb, "      %s -> %s\n", p.Name, p.Path)
		}
	}
	sb.WriteString("\n")
}

// statusIndicator returns a visual indicator for a tool status.
func (w *SimpleWriter) statusIndicator(status string) string {
	switch status {
	case model.StatusSuccess.String():
		return w.paint(color.FgGreen).Sprint("+")
	case model.StatusError.String():
		return w.paint(color.FgRed).Sprint("!")
	default:
		return w.paint(color.Faint).Sprint("-")
	}
}

// writeMetadata writes every metadata field.
func (w *SimpleWriter) writeMetadata(sb *strings.Builder, doc *Document) {
	w.section(sb, "METADATA")

	if len(doc.Metadata) == 0 {
		sb.WriteString("  No metadata\n\n")
		return
	}
	for _, k := range sortedKeys(doc.Metadata) {
		fmt.Fprintf(sb, "  %s: %s\n", k, truncateString(doc.Metadata[k], 100))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by DeepVision\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// Package report assembles analysis results into the response document and
// writes it in several formats.
//
// Assemble turns an AnalysisRun and its FinalReport into a Document, the
// wire contract served by the HTTP API and stored in the history database.
// ParseDocument reads a Document back and validates it against the same
// contract.
//
// This package contains writers for different output formats:
//   - JSONWriter: The wire document, for tool integration
//   - MarkdownWriter: A shareable report with tables and a status chart
//   - SimpleWriter: Colored text for terminal display
package report

// Package report renders validation results as text. Rendering does no
// I/O so the same output can go to a file, a terminal or an HTTP response.
package report

import (
	"fmt"
	"strings"

	"github.com/nishad/epibac/internal/validator"
)

// Render returns the plain-text report for r: one section per severity
// that has findings, most severe first, one line per finding.
func Render(r *validator.Result) string {
	var b strings.Builder

	b.WriteString("EPIBAC SAMPLE VALIDATION REPORT\n")
	if r.Mode != "" {
		fmt.Fprintf(&b, "Mode: %s\n", r.Mode)
	}
	if r.RunName != "" {
		fmt.Fprintf(&b, "Run: %s\n", r.RunName)
	}
	if name := r.DelimiterName(); name != "" {
		fmt.Fprintf(&b, "Delimiter: %s\n", name)
	}
	fmt.Fprintf(&b, "Status: %d (%s)\n", r.Status, r.Status)
	fmt.Fprintf(&b, "Summary: %d fatal, %d errors, %d warnings\n", len(r.Fatal), len(r.Errors), len(r.Warnings))

	if r.Status == validator.StatusClean {
		b.WriteString("\nValidation completed successfully: no problems found.\n")
		return b.String()
	}

	section(&b, "FATAL ERRORS", r.Fatal)
	section(&b, "ERRORS", r.Errors)
	section(&b, "WARNINGS", r.Warnings)
	return b.String()
}

func section(b *strings.Builder, title string, findings []validator.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(b, "\n===== %s =====\n", title)
	for _, f := range findings {
		b.WriteString(Line(f))
		b.WriteByte('\n')
	}
}

// Line formats a single finding: "Row <n> (<identifier>): <message>", or
// "Manifest: <message>" for findings about the whole file.
func Line(f validator.Finding) string {
	if f.Row == 0 {
		return "Manifest: " + f.Message
	}
	id := f.ID
	if id == "" {
		id = fmt.Sprintf("row_%d", f.Row)
	}
	return fmt.Sprintf("Row %d (%s): %s", f.Row, id, f.Message)
}

// Headline is the one-line outcome used in banners and API responses.
func Headline(s validator.Status) string {
	switch s {
	case validator.StatusClean:
		return "VALIDATION SUCCESSFUL"
	case validator.StatusWarnings:
		return "VALIDATION COMPLETED WITH WARNINGS"
	case validator.StatusErrors:
		return "VALIDATION COMPLETED WITH ERRORS"
	default:
		return "VALIDATION FAILED"
	}
}

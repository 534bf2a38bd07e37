package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/nishad/epibac/internal/database"
	apperrors "github.com/nishad/epibac/internal/errors"
	"github.com/nishad/epibac/internal/validator"
)

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Check if output is to terminal
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Apply color if terminal output and color enabled
func colorize(color, text string) string {
	if !noColor && isTerminal() && os.Getenv("NO_COLOR") == "" {
		return color + text + colorReset
	}
	return text
}

// Print error message in user-friendly format
func printError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s %s\n", colorize(colorRed, "✗"), msg)
}

// Print success message
func printSuccess(format string, args ...interface{}) {
	if !quiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Printf("%s %s\n", colorize(colorGreen, "✓"), msg)
	}
}

// Print info message
func printInfo(format string, args ...interface{}) {
	if !quiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Printf("%s\n", colorize(colorCyan, msg))
	}
}

// Print warning message
func printWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s %s\n", colorize(colorYellow, "⚠"), msg)
}

// Print debug message
func printDebug(format string, args ...interface{}) {
	if debug {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(os.Stderr, "%s %s\n", colorize(colorGray, "[DEBUG]"), msg)
	}
}

// boxLines frames lines in a double-line box.
func boxLines(lines ...string) []string {
	width := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > width {
			width = n
		}
	}
	out := make([]string, 0, len(lines)+2)
	out = append(out, "╔"+strings.Repeat("═", width+2)+"╗")
	for _, l := range lines {
		pad := width - utf8.RuneCountInString(l)
		out = append(out, "║ "+l+strings.Repeat(" ", pad)+" ║")
	}
	out = append(out, "╚"+strings.Repeat("═", width+2)+"╝")
	return out
}

// statusColor picks the banner color for a validation status.
func statusColor(s validator.Status) string {
	switch s {
	case validator.StatusClean:
		return colorGreen
	case validator.StatusWarnings:
		return colorYellow
	default:
		return colorRed
	}
}

func severityColor(s validator.Severity) string {
	if s == validator.SeverityWarning {
		return colorYellow
	}
	return colorRed
}

// printBanner prints a boxed, colored banner. Banners are shown even in
// quiet mode since they carry the outcome.
func printBanner(color string, lines ...string) {
	for _, l := range boxLines(lines...) {
		fmt.Println(colorize(color+colorBold, l))
	}
}

// openHistory opens the history database when it is enabled, or returns
// nil. Failures are reported as warnings: history is never required.
func openHistory() *database.DB {
	if !cfg.Storage.HistoryEnabled {
		return nil
	}
	db, err := database.Initialize(cfg.Storage.HistoryPath)
	if err != nil {
		printWarning("Validation history unavailable: %s", userMessage(err))
		return nil
	}
	db.SetLogger(logger)
	return db
}

// userMessage renders err without internal operation names unless
// debugging.
func userMessage(err error) string {
	if debug {
		return err.Error()
	}
	return apperrors.Message(err)
}

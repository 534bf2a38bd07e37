package validator

import (
	"fmt"
	"strings"

	"github.com/nishad/epibac/internal/manifest"
	"github.com/nishad/epibac/internal/schema"
)

// Severity classifies a finding.
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity accepts "warning", "error" or "fatal" in any case.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "fatal":
		return SeverityFatal, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", name)
	}
}

// Status is the overall outcome of a validation pass. Callers gating an
// automated run treat anything at or above StatusErrors as failure.
type Status int

const (
	StatusClean Status = iota
	StatusWarnings
	StatusErrors
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusWarnings:
		return "warnings"
	case StatusErrors:
		return "errors"
	case StatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Failed reports whether the status should stop a pipeline run.
func (s Status) Failed() bool {
	return s >= StatusErrors
}

// Finding is one problem found in a manifest. Row is the 1-based line in
// the file (the header is line 1); 0 marks a finding about the whole file.
type Finding struct {
	Severity Severity `json:"severity"`
	Row      int      `json:"row"`
	ID       string   `json:"id,omitempty"`
	Field    string   `json:"field,omitempty"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
}

// Finding types.
const (
	TypeUnreadable     = "UNREADABLE"
	TypeConfig         = "INVALID_CONFIG"
	TypeMode           = "INVALID_MODE"
	TypeRunName        = "INVALID_RUN_NAME"
	TypeMissingColumn  = "MISSING_COLUMN"
	TypeRenameConflict = "RENAME_CONFLICT"
	TypeMissingID      = "MISSING_IDENTIFIER"
	TypeInvalidID      = "INVALID_IDENTIFIER"
	TypeMissingValue   = "MISSING_VALUE"
	TypeInvalidDate    = "INVALID_DATE"
	TypeFutureDate     = "FUTURE_DATE"
	TypeNormalized     = "NORMALIZED"
	TypeUnknownSpecies = "UNKNOWN_SPECIES"
	TypeMissingMate    = "MISSING_MATE"
	TypeNoData         = "NO_DATA"
	TypeMissingFile    = "MISSING_FILE"
	TypeBadFile        = "BAD_FILE"
	TypeMissingModel   = "MISSING_MODEL"
	TypeUnknownModel   = "UNKNOWN_MODEL"
	TypeOrphanModel    = "ORPHAN_MODEL"
	TypeRunID          = "INVALID_RUN_ID"
	TypeRunIDMismatch  = "RUN_ID_MISMATCH"
)

// Stats counts what a validation pass looked at.
type Stats struct {
	Rows         int `json:"rows"`
	Columns      int `json:"columns"`
	FilesChecked int `json:"files_checked"`
	Corrections  int `json:"corrections"`
}

// Result is the outcome of one validation pass. It is built once and not
// modified afterwards.
type Result struct {
	Status    Status          `json:"status"`
	Mode      schema.Mode     `json:"mode,omitempty"`
	RunName   string          `json:"run_name,omitempty"`
	Delimiter rune            `json:"-"`
	Fatal     []Finding       `json:"fatal"`
	Errors    []Finding       `json:"errors"`
	Warnings  []Finding       `json:"warnings"`
	Table     *manifest.Table `json:"-"` // nil when Status is StatusFatal
	Stats     Stats           `json:"stats"`
}

// Findings returns every finding, most severe bucket first.
func (r *Result) Findings() []Finding {
	out := make([]Finding, 0, len(r.Fatal)+len(r.Errors)+len(r.Warnings))
	out = append(out, r.Fatal...)
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// DelimiterName names the delimiter the manifest was read with, or "" when
// the file could not be read.
func (r *Result) DelimiterName() string {
	if r.Delimiter == 0 {
		return ""
	}
	return manifest.DelimiterName(r.Delimiter)
}

// statusOf derives the status from the three buckets.
func statusOf(fatal, errs, warnings int) Status {
	switch {
	case fatal > 0:
		return StatusFatal
	case errs > 0:
		return StatusErrors
	case warnings > 0:
		return StatusWarnings
	default:
		return StatusClean
	}
}

// collector accumulates findings in discovery order while a pass runs.
type collector struct {
	fatal    []Finding
	errors   []Finding
	warnings []Finding
}

func (c *collector) add(f Finding) {
	switch f.Severity {
	case SeverityFatal:
		c.fatal = append(c.fatal, f)
	case SeverityError:
		c.errors = append(c.errors, f)
	default:
		f.Severity = SeverityWarning
		c.warnings = append(c.warnings, f)
	}
}

func (c *collector) hasFatal() bool {
	return len(c.fatal) > 0
}

func (c *collector) result(mode schema.Mode, runName string, delim rune, table *manifest.Table, stats Stats) *Result {
	r := &Result{
		Status:    statusOf(len(c.fatal), len(c.errors), len(c.warnings)),
		Mode:      mode,
		RunName:   runName,
		Delimiter: delim,
		Fatal:     nonNil(c.fatal),
		Errors:    nonNil(c.errors),
		Warnings:  nonNil(c.warnings),
		Stats:     stats,
	}
	if r.Status != StatusFatal {
		r.Table = table
	}
	return r
}

func nonNil(f []Finding) []Finding {
	if f == nil {
		return []Finding{}
	}
	return f
}

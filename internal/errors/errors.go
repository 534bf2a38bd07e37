// Package errors provides the error taxonomy used across epibac.
// Infrastructure failures (unreadable manifest, unparseable config,
// unavailable history database) travel as *Error values carrying the
// failing operation and a Kind; data-quality problems in a manifest are
// never errors, they are validator findings.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Op represents an operation name for error context.
type Op string

// Error represents an application error with context.
type Error struct {
	Op   Op     // Operation that failed
	Kind Kind   // Category of error
	Err  error  // Underlying error
	Msg  string // Additional context message
}

// Kind represents the category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDatabase
	KindIO
	KindValidation
	KindConfig
	KindNetwork
	KindParse
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error with the given arguments.
// Arguments can be: Op, Kind, error, string (message).
func E(args ...interface{}) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case error:
			e.Err = a
		case string:
			e.Msg = a
		}
	}
	return e
}

// Wrap wraps an error with an operation name for context.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: GetKind(err), Err: err}
}

// WrapMsg wraps an error with an operation name and message.
func WrapMsg(op Op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: GetKind(err), Msg: msg, Err: err}
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// GetKind returns the kind of the outermost *Error in err's chain that
// carries one, or KindUnknown.
func GetKind(err error) Kind {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return KindUnknown
		}
		if e.Kind != KindUnknown {
			return e.Kind
		}
		err = e.Err
	}
	return KindUnknown
}

// SkipCounter tracks how many times operations have been skipped.
// Use this to provide visibility into silent error patterns.
type SkipCounter struct {
	Op         string
	Count      int
	LastErr    error
	LastDetail string
}

// NewSkipCounter creates a new skip counter for the given operation.
func NewSkipCounter(op string) *SkipCounter {
	return &SkipCounter{Op: op}
}

// Skip records a skipped operation due to an error.
func (s *SkipCounter) Skip(err error, detail string) {
	s.Count++
	s.LastErr = err
	s.LastDetail = detail
}

// Report logs a summary if any operations were skipped.
func (s *SkipCounter) Report(logger *zap.Logger) {
	if s.Count == 0 || logger == nil {
		return
	}
	logger.Warn("operations skipped",
		zap.String("op", s.Op),
		zap.Int("count", s.Count),
		zap.Error(s.LastErr),
		zap.String("detail", s.LastDetail))
}

// RowScanner tracks database rows skipped because they failed to scan.
type RowScanner struct {
	skipped *SkipCounter
	scanned int
}

// NewRowScanner creates a new row scanner with error tracking.
func NewRowScanner(operation string) *RowScanner {
	return &RowScanner{
		skipped: NewSkipCounter(operation),
	}
}

// RecordScan records a successful scan.
func (r *RowScanner) RecordScan() {
	r.scanned++
}

// RecordSkip records a skipped row due to scan error.
func (r *RowScanner) RecordSkip(err error, identifier string) {
	r.skipped.Skip(err, identifier)
}

// Report logs statistics about the scanning operation.
func (r *RowScanner) Report(logger *zap.Logger) {
	if r.skipped.Count == 0 || logger == nil {
		return
	}
	logger.Warn("row scan incomplete",
		zap.Int("scanned", r.scanned),
		zap.Int("skipped", r.skipped.Count),
		zap.String("success_rate", fmt.Sprintf("%.1f%%",
			float64(r.scanned)/float64(r.scanned+r.skipped.Count)*100)))
	r.skipped.Report(logger)
}

// SkippedCount returns the number of skipped rows.
func (r *RowScanner) SkippedCount() int {
	return r.skipped.Count
}

// ScannedCount returns the number of successfully scanned rows.
func (r *RowScanner) ScannedCount() int {
	return r.scanned
}

// Message renders err for end users: the messages of every *Error in the
// chain and the root cause, without operation names.
func Message(err error) string {
	var parts []string
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			parts = append(parts, err.Error())
			break
		}
		if e.Msg != "" {
			parts = append(parts, e.Msg)
		}
		err = e.Err
	}
	return strings.Join(parts, ": ")
}

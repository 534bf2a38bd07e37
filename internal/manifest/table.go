// Package manifest loads and writes the delimited sample manifests
// written by lab technicians. Every cell is kept as a raw string; no type
// inference happens here.
package manifest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/nishad/epibac/internal/errors"
)

const (
	Semicolon = ';'
	Comma     = ','
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a manifest held in memory: a header, rows of raw string cells
// (always as wide as the header) and the delimiter the file was read with.
type Table struct {
	Header    []string
	Rows      [][]string
	Delimiter rune
}

// Load reads the manifest at path, detecting its delimiter. It never
// writes to or locks the file.
func Load(path string) (*Table, error) {
	const op apperrors.Op = "manifest.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindIO, err, "cannot read samples file")
	}

	t, err := Parse(data)
	if err != nil {
		return nil, apperrors.WrapMsg(op, filepath.Base(path), err)
	}
	return t, nil
}

// Parse detects the delimiter of data and loads it. Semicolon is tried
// first and only accepted when it yields at least two header columns;
// comma is the fallback. The first delimiter that parses wins.
func Parse(data []byte) (*Table, error) {
	const op apperrors.Op = "manifest.Parse"

	data = bytes.TrimPrefix(data, utf8BOM)

	t, semiErr := parseWith(data, Semicolon, 2)
	if semiErr != nil {
		var commaErr error
		t, commaErr = parseWith(data, Comma, 1)
		if commaErr != nil {
			return nil, apperrors.E(op, apperrors.KindParse,
				fmt.Errorf("';': %v; ',': %v", semiErr, commaErr),
				"file is neither semicolon- nor comma-separated")
		}
	}

	if dup := firstDuplicate(t.Header); dup != "" {
		return nil, apperrors.E(op, apperrors.KindParse,
			fmt.Sprintf("duplicate column %q in header", dup))
	}
	return t, nil
}

func parseWith(data []byte, delim rune, minColumns int) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}
	// Spreadsheet exports often end every line with a delimiter.
	for len(header) > 1 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) < minColumns {
		return nil, fmt.Errorf("header has %d column(s)", len(header))
	}
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := fitRow(rec, len(header))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows, Delimiter: delim}, nil
}

// fitRow pads short records with empty cells. Longer records are only
// accepted when the overflow cells are blank.
func fitRow(rec []string, width int) ([]string, error) {
	if len(rec) > width {
		for _, cell := range rec[width:] {
			if strings.TrimSpace(cell) != "" {
				return nil, fmt.Errorf("%d fields, header has %d", len(rec), width)
			}
		}
		rec = rec[:width]
	}
	row := make([]string, width)
	copy(row, rec)
	return row, nil
}

func firstDuplicate(header []string) string {
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return name
		}
		seen[name] = true
	}
	return ""
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	return t.Index(name) >= 0
}

// Value returns the cell at row, column name; empty when the column is absent.
func (t *Table) Value(row int, name string) string {
	idx := t.Index(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// ColumnEmpty reports whether every cell of column name is blank.
func (t *Table) ColumnEmpty(name string) bool {
	idx := t.Index(name)
	if idx < 0 {
		return true
	}
	for _, row := range t.Rows {
		if strings.TrimSpace(row[idx]) != "" {
			return false
		}
	}
	return true
}

// AddColumn appends an empty column. It is a no-op when name exists.
func (t *Table) AddColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
}

// DropColumn removes column name and its cells.
func (t *Table) DropColumn(name string) {
	idx := t.Index(name)
	if idx < 0 {
		return
	}
	t.Header = append(t.Header[:idx:idx], t.Header[idx+1:]...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:idx:idx], row[idx+1:]...)
	}
}

// RenameColumn changes the header name of column from in place.
func (t *Table) RenameColumn(from, to string) bool {
	idx := t.Index(from)
	if idx < 0 {
		return false
	}
	t.Header[idx] = to
	return true
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		Header:    append([]string(nil), t.Header...),
		Rows:      make([][]string, len(t.Rows)),
		Delimiter: t.Delimiter,
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	return c
}

// Write encodes the table with its own delimiter.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = t.delimiter()
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories.
func (t *Table) WriteFile(path string) error {
	const op apperrors.Op = "manifest.WriteFile"

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.E(op, apperrors.KindIO, err, "failed to create output directory")
	}

	var buf bytes.Buffer
	if err := t.Write(&buf); err != nil {
		return apperrors.E(op, apperrors.KindIO, err, "failed to encode manifest")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return apperrors.E(op, apperrors.KindIO, err, "failed to write manifest")
	}
	return nil
}

func (t *Table) delimiter() rune {
	if t.Delimiter == 0 {
		return Semicolon
	}
	return t.Delimiter
}

// DelimiterName returns a human-readable name for a delimiter.
func DelimiterName(d rune) string {
	switch d {
	case Semicolon:
		return "semicolon"
	case Comma:
		return "comma"
	default:
		return fmt.Sprintf("%q", d)
	}
}

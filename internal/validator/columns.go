package validator

import (
	"strings"

	"github.com/nishad/epibac/internal/manifest"
	"go.uber.org/zap"
)

// normalizeColumns renames institution-specific columns, checks that the
// schema's columns are present and appends the fill columns. Columns the
// schema does not know about are left untouched.
func (p *pass) normalizeColumns() {
	t := p.table
	renamed := make(map[string]string)

	for _, r := range p.sch.Renames {
		if !t.HasColumn(r.From) {
			continue
		}
		if t.HasColumn(r.To) {
			if src, ok := renamed[r.To]; ok {
				p.filef(SeverityError, r.From, TypeRenameConflict,
					"column %s not renamed: %s already provides %s", r.From, src, r.To)
				continue
			}
			if !t.ColumnEmpty(r.To) {
				p.filef(SeverityError, r.From, TypeRenameConflict,
					"column %s not renamed: column %s is already present and not empty", r.From, r.To)
				continue
			}
			t.DropColumn(r.To)
		}
		t.RenameColumn(r.From, r.To)
		renamed[r.To] = r.From
	}
	if len(renamed) > 0 {
		p.v.logger.Debug("columns renamed", zap.Int("count", len(renamed)))
	}

	for _, col := range p.sch.Required {
		if !t.HasColumn(col) {
			p.filef(SeverityFatal, col, TypeMissingColumn, "required column %s is missing", p.sch.Describe(col))
		}
	}

	hasData := false
	for _, col := range p.sch.DataColumns {
		if t.HasColumn(col) {
			hasData = true
			break
		}
	}
	if !hasData {
		names := make([]string, len(p.sch.DataColumns))
		for i, col := range p.sch.DataColumns {
			names[i] = p.sch.Describe(col)
		}
		p.filef(SeverityFatal, "", TypeMissingColumn,
			"no sequencing data column: expected at least one of %s", strings.Join(names, ", "))
	}

	if p.c.hasFatal() {
		return
	}

	for _, col := range p.sch.Important {
		if !t.HasColumn(col) {
			p.filef(SeverityError, col, TypeMissingColumn, "column %s is missing", p.sch.Describe(col))
		}
	}
	for _, col := range p.sch.Fill {
		t.AddColumn(col)
	}
}

// checkIdentifiers flags every row without a primary identifier. Any such
// row is fatal: output files are named after the identifier.
func (p *pass) checkIdentifiers(samples []*manifest.Sample) {
	for _, s := range samples {
		if strings.TrimSpace(s.ID) == "" {
			p.rowf(SeverityFatal, s, manifest.ColID, TypeMissingID,
				"sample identifier %s is empty", p.sch.Describe(manifest.ColID))
		}
	}
}

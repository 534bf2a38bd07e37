package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nishad/epibac/internal/manifest"
	"github.com/nishad/epibac/internal/schema"
)

// knownModels are the dorado basecalling models the pipeline has been
// verified with. Others are accepted with a warning; configs extend the
// list through params.nanopore.known_models.
var knownModels = []string{
	"dna_r10.4.1_e8.2_400bps_hac@v4.2.0",
	"dna_r10.4.1_e8.2_400bps_sup@v4.2.0",
	"dna_r9.4.1_450bps_hac@v3.3",
	"dna_r9.4.1_450bps_sup@v3.3",
}

var idPattern = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

func (p *pass) checkIdentifier(s *manifest.Sample) {
	if !idPattern.MatchString(s.ID) {
		p.rowf(SeverityError, s, manifest.ColID, TypeInvalidID,
			"sample identifier %q contains characters other than letters, digits, '_' and '-'", s.ID)
	}
	if p.sch.RequireID2 && strings.TrimSpace(s.ID2) == "" {
		p.rowf(SeverityError, s, manifest.ColID2, TypeMissingValue,
			"request identifier %s is empty", p.sch.Describe(manifest.ColID2))
	}
}

func (p *pass) checkDate(s *manifest.Sample) {
	if !p.table.HasColumn(manifest.ColCollectionDate) {
		return
	}
	raw := s.CollectionDate
	if strings.TrimSpace(raw) == "" {
		if p.sch.Mode == schema.ModeGVA {
			p.rowf(SeverityWarning, s, manifest.ColCollectionDate, TypeMissingValue,
				"collection date %s is empty", p.sch.Describe(manifest.ColCollectionDate))
		}
		return
	}

	date, ok := NormalizeDate(raw)
	if !ok {
		p.rowf(SeverityError, s, manifest.ColCollectionDate, TypeInvalidDate,
			"invalid collection date %q (expected DD/MM/YY, DD/MM/YYYY, YYYY/MM/DD or YYYY-MM-DD)", raw)
		return
	}
	if date != raw {
		s.CollectionDate = date
		p.stats.Corrections++
		p.rowf(SeverityWarning, s, manifest.ColCollectionDate, TypeNormalized,
			"collection date normalized from %q to %q", raw, date)
	}
	if p.v.cfg.Validation.CheckFutureDates && date > p.v.now().Format(canonicalDate) {
		p.rowf(SeverityError, s, manifest.ColCollectionDate, TypeFutureDate,
			"collection date %s is in the future", date)
	}
}

func (p *pass) checkOrganism(s *manifest.Sample) {
	if !p.table.HasColumn(manifest.ColOrganism) {
		return
	}
	raw := s.Organism

	if strings.TrimSpace(raw) == "" {
		s.Organism = UnknownOrganism
		p.stats.Corrections++
		sev := SeverityWarning
		if p.sch.RequireOrganism {
			sev = SeverityError
		}
		p.rowf(sev, s, manifest.ColOrganism, TypeMissingValue,
			"organism %s is empty, set to %q", p.sch.Describe(manifest.ColOrganism), UnknownOrganism)
		return
	}

	name := NormalizeOrganism(raw)
	if name == UnknownOrganism {
		if raw != name {
			s.Organism = name
			p.stats.Corrections++
			p.rowf(SeverityWarning, s, manifest.ColOrganism, TypeNormalized,
				"organism normalized from %q to %q", raw, name)
		}
		if p.sch.RequireOrganism {
			p.rowf(SeverityError, s, manifest.ColOrganism, TypeMissingValue,
				"organism %s is %q", p.sch.Describe(manifest.ColOrganism), UnknownOrganism)
		}
		return
	}

	if name != raw {
		s.Organism = name
		p.stats.Corrections++
		p.rowf(SeverityWarning, s, manifest.ColOrganism, TypeNormalized,
			"organism normalized from %q to %q", raw, name)
	}
	if len(p.v.cfg.Species) > 0 && !p.v.cfg.Species.Contains(name) {
		p.rowf(SeverityWarning, s, manifest.ColOrganism, TypeUnknownSpecies,
			"organism %q is not in the configured species list", name)
	}
}

func (p *pass) checkRelevance(s *manifest.Sample) {
	if p.sch.RequireRelevance && p.table.HasColumn(manifest.ColRelevance) && strings.TrimSpace(s.Relevance) == "" {
		p.rowf(SeverityError, s, manifest.ColRelevance, TypeMissingValue,
			"relevance %s is empty", p.sch.Describe(manifest.ColRelevance))
	}
}

// checkRunID applies the run-name grammar to the per-row run column in gva.
func (p *pass) checkRunID(s *manifest.Sample) {
	if p.sch.Mode != schema.ModeGVA || !p.table.HasColumn(manifest.ColRunID) {
		return
	}
	runID := strings.TrimSpace(s.RunID)
	field := p.sch.Describe(manifest.ColRunID)

	switch {
	case runID == "":
		p.rowf(SeverityError, s, manifest.ColRunID, TypeMissingValue, "run identifier %s is empty", field)
	case schema.ValidateRunName(runID) != nil:
		p.rowf(SeverityError, s, manifest.ColRunID, TypeRunID,
			"run identifier %q in %s does not match AAMMDD_HOSPXXX with a known hospital code", runID, field)
	case runID != p.sch.RunName:
		p.rowf(SeverityWarning, s, manifest.ColRunID, TypeRunIDMismatch,
			"run identifier %q differs from the configured run_name %q", runID, p.sch.RunName)
	}
}

func (p *pass) checkIllumina(s *manifest.Sample) {
	r1 := strings.TrimSpace(s.IlluminaR1)
	r2 := strings.TrimSpace(s.IlluminaR2)

	switch {
	case r1 == "" && r2 == "":
		return
	case r1 == "":
		p.rowf(SeverityError, s, manifest.ColIlluminaR1, TypeMissingMate,
			"%s is missing while %s is set", p.sch.Describe(manifest.ColIlluminaR1), p.sch.Describe(manifest.ColIlluminaR2))
		p.checkFile(s, manifest.ColIlluminaR2, r2)
	case r2 == "":
		p.rowf(SeverityError, s, manifest.ColIlluminaR2, TypeMissingMate,
			"%s is missing while %s is set", p.sch.Describe(manifest.ColIlluminaR2), p.sch.Describe(manifest.ColIlluminaR1))
		p.checkFile(s, manifest.ColIlluminaR1, r1)
	default:
		p.checkFile(s, manifest.ColIlluminaR1, r1)
		p.checkFile(s, manifest.ColIlluminaR2, r2)
	}
}

func (p *pass) checkNanopore(s *manifest.Sample) {
	path := strings.TrimSpace(s.Nanopore)
	rowModel := strings.TrimSpace(s.DoradoModel)

	if path == "" {
		if rowModel != "" {
			p.rowf(SeverityWarning, s, manifest.ColDoradoModel, TypeOrphanModel,
				"basecalling model %q is set but there is no nanopore file", rowModel)
		}
		return
	}

	model := rowModel
	if model == "" && p.v.cfg.HasNanoporeModel() {
		model = strings.TrimSpace(p.v.cfg.Params.Nanopore.DoradoModel)
	}
	switch {
	case model == "":
		p.rowf(SeverityError, s, manifest.ColNanopore, TypeMissingModel,
			"nanopore file is set but no basecalling model is configured "+
				"(set params.nanopore.dorado_model or the %s column)", p.sch.Describe(manifest.ColDoradoModel))
	case !p.v.knownModel(model):
		p.rowf(SeverityWarning, s, manifest.ColDoradoModel, TypeUnknownModel,
			"basecalling model %q is not in the list of verified dorado models", model)
	}

	p.checkFile(s, manifest.ColNanopore, path)
}

func (p *pass) checkDataSource(s *manifest.Sample) {
	if strings.TrimSpace(s.IlluminaR1) == "" && strings.TrimSpace(s.IlluminaR2) == "" && strings.TrimSpace(s.Nanopore) == "" {
		p.rowf(SeverityError, s, "", TypeNoData, "sample has no sequencing files (Illumina or nanopore)")
	}
}

func (p *pass) checkFile(s *manifest.Sample, col, path string) {
	p.stats.FilesChecked++
	problem := probeFile(path, p.v.cfg.Validation.ProbeFastq)
	if problem == nil {
		return
	}
	if problem.missing {
		p.rowf(p.v.missingFileSeverity, s, col, TypeMissingFile, "%s: %s", p.sch.Describe(col), problem.msg)
		return
	}
	p.rowf(SeverityError, s, col, TypeBadFile, "%s: %s", p.sch.Describe(col), problem.msg)
}

func (v *Validator) knownModel(model string) bool {
	for _, m := range knownModels {
		if m == model {
			return true
		}
	}
	for _, m := range v.cfg.Params.Nanopore.KnownModels {
		if m == model {
			return true
		}
	}
	return false
}

// rowf records a finding against sample s.
func (p *pass) rowf(sev Severity, s *manifest.Sample, field, typ, format string, args ...interface{}) {
	p.c.add(Finding{
		Severity: sev,
		Row:      s.Row,
		ID:       p.label(s),
		Field:    field,
		Type:     typ,
		Message:  fmt.Sprintf(format, args...),
	})
}

// filef records a finding about the manifest as a whole.
func (p *pass) filef(sev Severity, field, typ, format string, args ...interface{}) {
	p.c.add(Finding{
		Severity: sev,
		Field:    field,
		Type:     typ,
		Message:  fmt.Sprintf(format, args...),
	})
}

// label names a row in the report: the first non-empty identifier column
// of the schema, or row_<n>.
func (p *pass) label(s *manifest.Sample) string {
	for _, col := range p.sch.ReportID {
		if v := strings.TrimSpace(s.Get(col)); v != "" {
			return v
		}
	}
	return fmt.Sprintf("row_%d", s.Row)
}

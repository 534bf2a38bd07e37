// Package schema describes the two manifest layouts epibac accepts and
// resolves which one applies to a validation run.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nishad/epibac/internal/config"
	"github.com/nishad/epibac/internal/manifest"
)

// Mode selects the manifest layout and the rules attached to it.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeGVA    Mode = "gva"
)

// Errors returned by ParseMode and ValidateRunName wrap one of these.
var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrRunName     = errors.New("invalid run_name")
)

// ParseMode accepts a mode name in any case. The empty string is normal.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeNormal:
		return ModeNormal, nil
	case ModeGVA:
		return ModeGVA, nil
	default:
		return "", fmt.Errorf("%w %q (expected 'normal' or 'gva')", ErrUnknownMode, s)
	}
}

// Rename maps an institution-specific column to its canonical name.
type Rename struct {
	From string
	To   string
}

// Schema is the immutable descriptor for one mode. Validators receive it
// instead of branching on the mode themselves.
type Schema struct {
	Mode Mode

	// Renames applies in order; the first source found for a canonical
	// column wins.
	Renames []Rename

	// Required columns must exist after renaming; absence is fatal.
	Required []string

	// At least one of DataColumns must exist; absence is fatal.
	DataColumns []string

	// Important columns are expected; absence is an error.
	Important []string

	// Fill columns are appended empty when absent.
	Fill []string

	// ReportID lists the columns tried, in order, to label a row in the report.
	ReportID []string

	// RequireID2 flags rows with an empty request identifier.
	RequireID2 bool

	// RequireOrganism and RequireRelevance flag empty cells as errors.
	RequireOrganism  bool
	RequireRelevance bool

	// RunName is the validated run identifier; empty outside gva.
	RunName string
}

var gvaRenames = []Rename{
	{"CODIGO_MUESTRA_ORIGEN", manifest.ColID},
	{"PETICION", manifest.ColID2},
	{"FECHA_TOMA_MUESTRA", manifest.ColCollectionDate},
	{"ESPECIE_SECUENCIA", manifest.ColOrganism},
	{"MOTIVO_WGS", manifest.ColRelevance},
	{"CARRERA", manifest.ColRunID},
	{"ILLUMINA_R1", manifest.ColIlluminaR1},
	{"ILLUMINA_R2", manifest.ColIlluminaR2},
	{"NANOPORE", manifest.ColNanopore},
	{"ONT", manifest.ColNanopore},
	{"MODELO_DORADO", manifest.ColDoradoModel},
	{"ID_WS", "scheme_mlst"},
	{"ST_WGS", "st"},
	{"MLST_WGS", "mlst"},
	{"R_Geno_WGS", "amr"},
	{"PHENO_WGS", "pheno_resfinder"},
	{"V_WGS", "virulence"},
	{"CONFIRMACION", manifest.ColConfirmationNote},
	{"NUM_BROTE", manifest.ColOutbreakID},
	{"COMENTARIO_WGS", manifest.ColComment},
}

var dataColumns = []string{manifest.ColIlluminaR1, manifest.ColIlluminaR2, manifest.ColNanopore}

// Normal returns the descriptor for the generic layout.
func Normal() *Schema {
	return &Schema{
		Mode:        ModeNormal,
		Required:    []string{manifest.ColID},
		DataColumns: dataColumns,
		ReportID:    []string{manifest.ColID, manifest.ColID2},
	}
}

// GVA returns the descriptor for the institutional layout bound to runName.
// runName is not checked here; use Resolve.
func GVA(runName string) *Schema {
	return &Schema{
		Mode:             ModeGVA,
		Renames:          gvaRenames,
		Required:         []string{manifest.ColID, manifest.ColID2},
		DataColumns:      dataColumns,
		Important:        []string{manifest.ColCollectionDate, manifest.ColOrganism, manifest.ColRelevance},
		Fill:             []string{manifest.ColOutbreakID, manifest.ColConfirmationNote, manifest.ColComment},
		ReportID:         []string{manifest.ColID2, manifest.ColID},
		RequireID2:       true,
		RequireOrganism:  true,
		RequireRelevance: true,
		RunName:          runName,
	}
}

// SourceColumn returns the institution-specific name that renames to
// canonical, or "" when the schema has none.
func (s *Schema) SourceColumn(canonical string) string {
	for _, r := range s.Renames {
		if r.To == canonical {
			return r.From
		}
	}
	return ""
}

// Describe renders a canonical column name the way a user of this layout
// knows it, e.g. "CODIGO_MUESTRA_ORIGEN (id)".
func (s *Schema) Describe(canonical string) string {
	if src := s.SourceColumn(canonical); src != "" {
		return fmt.Sprintf("%s (%s)", src, canonical)
	}
	return canonical
}

// Resolve picks the schema for a run. An explicit override wins over
// cfg.Mode; the default is normal. In gva the configured run name must be
// valid. Every error returned here makes the manifest unprocessable.
func Resolve(cfg *config.Config, override string) (*Schema, error) {
	raw := override
	if strings.TrimSpace(raw) == "" && cfg != nil {
		raw = cfg.Mode
	}

	mode, err := ParseMode(raw)
	if err != nil {
		return nil, err
	}
	if mode == ModeNormal {
		return Normal(), nil
	}

	runName := ""
	if cfg != nil {
		runName = strings.TrimSpace(cfg.RunName)
	}
	if err := ValidateRunName(runName); err != nil {
		return nil, err
	}
	return GVA(runName), nil
}

var runNamePattern = regexp.MustCompile(`^\d{6}_[A-Z]{4}\d{3}$`)

// hospitals is the allow-list of four-letter hospital codes.
var hospitals = []string{"ALIC", "CAST", "ELCH", "GRAL", "PESE", "CLIN", "LAFE", "EPIM"}

// MatchRunName reports whether s follows the AAMMDD_HOSPXXX grammar.
// The hospital code is not checked.
func MatchRunName(s string) bool {
	return runNamePattern.MatchString(s)
}

// ValidateRunName checks the AAMMDD_HOSPXXX grammar and the hospital code.
func ValidateRunName(s string) error {
	if s == "" {
		return fmt.Errorf("%w: run_name is required in gva mode", ErrRunName)
	}
	if !MatchRunName(s) {
		return fmt.Errorf("%w: %q does not match AAMMDD_HOSPXXX", ErrRunName, s)
	}
	if code := s[7:11]; !IsHospital(code) {
		return fmt.Errorf("%w: %q has unknown hospital code %q (expected one of %s)",
			ErrRunName, s, code, strings.Join(hospitals, ", "))
	}
	return nil
}

// IsHospital reports whether code is in the allow-list.
func IsHospital(code string) bool {
	for _, h := range hospitals {
		if h == code {
			return true
		}
	}
	return false
}

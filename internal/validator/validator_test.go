package validator

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nishad/epibac/internal/config"
	"github.com/nishad/epibac/internal/manifest"
	"github.com/nishad/epibac/internal/testutil"
	"go.uber.org/zap/zapcore"
)

const today = "2026-06-01"

func newTestValidator(t *testing.T, cfg *config.Config) *Validator {
	t.Helper()
	return New(cfg, Options{Now: testutil.FixedClock(t, today)})
}

func gvaConfig(runName string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = "gva"
	cfg.RunName = runName
	return cfg
}

func types(findings []Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Type + ":" + f.Field
	}
	return out
}

var gvaHeader = []string{
	"CODIGO_MUESTRA_ORIGEN", "PETICION", "FECHA_TOMA_MUESTRA", "ESPECIE_SECUENCIA",
	"MOTIVO_WGS", "ILLUMINA_R1", "ILLUMINA_R2",
}

func TestScenarioNormalCorrections(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "samples.csv",
		"id;collection_date;organism;illumina_r1;illumina_r2;nanopore\n"+
			"S1;01/02/24;E. coli;r1.fastq.gz;r2.fastq.gz;\n")

	res := newTestValidator(t, nil).Validate(path, "")

	if res.Status != StatusWarnings {
		t.Fatalf("expected status 1, got %d (%+v)", res.Status, res.Findings())
	}
	if len(res.Errors) != 0 || len(res.Fatal) != 0 {
		t.Errorf("expected no errors or fatals, got %+v %+v", res.Errors, res.Fatal)
	}

	want := []string{
		"NORMALIZED:collection_date",
		"NORMALIZED:organism",
		"MISSING_FILE:illumina_r1",
		"MISSING_FILE:illumina_r2",
	}
	if diff := cmp.Diff(want, types(res.Warnings)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	if res.Table == nil {
		t.Fatal("expected a normalized table")
	}
	if got := res.Table.Value(0, manifest.ColCollectionDate); got != "2024-02-01" {
		t.Errorf("collection_date = %q, want 2024-02-01", got)
	}
	if got := res.Table.Value(0, manifest.ColOrganism); got != "e._coli" {
		t.Errorf("organism = %q, want e._coli", got)
	}
	if res.Stats.Rows != 1 {
		t.Errorf("expected 1 row processed, got %d", res.Stats.Rows)
	}
	if res.Delimiter != manifest.Semicolon {
		t.Errorf("expected semicolon delimiter, got %q", res.Delimiter)
	}
	for _, w := range res.Warnings {
		if w.Row != 2 || w.ID != "S1" {
			t.Errorf("warning attached to row %d (%s), want row 2 (S1)", w.Row, w.ID)
		}
	}
}

func TestScenarioGVAMissingIdentifier(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Manifest(t, dir, "samples.csv", ";", gvaHeader,
		[]string{"", "P1", "01/01/24", "E. coli", "VIGILANCIA", "r1.fastq.gz", "r2.fastq.gz"})

	res := newTestValidator(t, gvaConfig("240101_CLIN002")).Validate(path, "")

	if res.Status != StatusFatal {
		t.Fatalf("expected status 3, got %d", res.Status)
	}
	if len(res.Fatal) != 1 {
		t.Fatalf("expected exactly one fatal finding, got %+v", res.Fatal)
	}
	f := res.Fatal[0]
	if f.Type != TypeMissingID || f.Row != 2 || f.ID != "P1" {
		t.Errorf("unexpected fatal finding %+v", f)
	}
	if !strings.Contains(f.Message, "CODIGO_MUESTRA_ORIGEN") {
		t.Errorf("message should name the source column: %q", f.Message)
	}
	if res.Table != nil {
		t.Error("fatal result must not carry a table")
	}
	if len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Errorf("row checks must not run after a fatal finding: %+v %+v", res.Errors, res.Warnings)
	}
}

func TestScenarioNanoporeWithoutModel(t *testing.T) {
	dir := t.TempDir()
	ont := testutil.WriteFastqGz(t, dir, "S1.fastq.gz", "")
	path := testutil.Manifest(t, dir, "samples.csv", ";",
		[]string{"id", "nanopore"}, []string{"S1", ont})

	res := newTestValidator(t, nil).Validate(path, "")

	if res.Status < StatusErrors {
		t.Fatalf("expected status >= 2, got %d", res.Status)
	}
	if diff := cmp.Diff([]string{"MISSING_MODEL:nanopore"}, types(res.Errors)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(res.Errors[0].Message, "params.nanopore.dorado_model") {
		t.Errorf("message should name the missing setting: %q", res.Errors[0].Message)
	}
	if res.Table == nil {
		t.Error("errors alone must still produce a table")
	}
}

func TestScenarioUnknownHospital(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Manifest(t, dir, "samples.csv", ";", gvaHeader,
		[]string{"S1", "P1", "01/01/24", "escherichia_coli", "VIGILANCIA", "a", "b"})

	res := newTestValidator(t, gvaConfig("240101_ZZZZ002")).Validate(path, "")

	if res.Status != StatusFatal {
		t.Fatalf("expected status 3, got %d", res.Status)
	}
	if diff := cmp.Diff([]string{"INVALID_RUN_NAME:run_name"}, types(res.Fatal)); diff != "" {
		t.Errorf("fatal mismatch (-want +got):\n%s", diff)
	}
	if res.Table != nil {
		t.Error("fatal result must not carry a table")
	}
}

func TestInvalidRunNamesAreFatal(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Manifest(t, dir, "samples.csv", ";", gvaHeader,
		[]string{"S1", "P1", "2024-01-01", "escherichia_coli", "VIGILANCIA", "a", "b"})

	for _, name := range []string{"", "240101_clin002", "2401_CLIN002", "240101_CLIN02", "240101-CLIN002", "x240101_CLIN002"} {
		t.Run(name, func(t *testing.T) {
			res := newTestValidator(t, gvaConfig(name)).Validate(path, "")
			if res.Status != StatusFatal || res.Table != nil {
				t.Errorf("run_name %q: expected fatal with no table, got status %d", name, res.Status)
			}
			if len(res.Errors)+len(res.Warnings) != 0 || res.Stats.Rows != 0 {
				t.Errorf("run_name %q: rows were processed (rows=%d)", name, res.Stats.Rows)
			}
		})
	}
}

func TestModeOverride(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Manifest(t, dir, "samples.csv", ";",
		[]string{"id", "illumina_r1", "illumina_r2"}, []string{"S1", "", ""})

	res := newTestValidator(t, gvaConfig("bad")).Validate(path, "normal")
	if res.Mode != "normal" {
		t.Errorf("override should select normal mode, got %q", res.Mode)
	}
	if res.Status == StatusFatal {
		t.Errorf("normal mode must ignore run_name, got %+v", res.Fatal)
	}

	res = newTestValidator(t, nil).Validate(path, "strict")
	if diff := cmp.Diff([]string{"INVALID_MODE:mode"}, types(res.Fatal)); diff != "" {
		t.Errorf("fatal mismatch (-want +got):\n%s", diff)
	}
}

func TestIdempotence(t *testing.T) {
	dir := t.TempDir()
	r1, r2 := testutil.PairedReads(t, dir, "S1")
	path := testutil.Manifest(t, dir, "samples.csv", ",",
		[]string{"id", "collection_date", "organism", "illumina_r1", "illumina_r2", "st"},
		[]string{"S1", "1.2.2024", "  Escherichia   Coli ", r1, r2, "131"},
		[]string{"S2", "", "", r1, r2, ""})

	v := newTestValidator(t, nil)
	first := v.Validate(path, "")
	if first.Status != StatusWarnings {
		t.Fatalf("expected warnings on first pass, got %d %+v", first.Status, first.Findings())
	}

	once := filepath.Join(dir, "once.csv")
	testutil.RequireNoError(t, first.Table.WriteFile(once), "write first pass")

	second := v.Validate(once, "")
	if second.Status != StatusClean {
		t.Errorf("second pass should be clean, got %d %+v", second.Status, second.Findings())
	}
	if second.Stats.Corrections != 0 {
		t.Errorf("second pass corrected %d cells", second.Stats.Corrections)
	}

	twice := filepath.Join(dir, "twice.csv")
	testutil.RequireNoError(t, second.Table.WriteFile(twice), "write second pass")

	if diff := cmp.Diff(testutil.ReadFile(t, once), testutil.ReadFile(t, twice)); diff != "" {
		t.Errorf("normalized output changed on second pass (-first +second):\n%s", diff)
	}
	if second.Delimiter != manifest.Comma {
		t.Errorf("delimiter drifted to %q", second.Delimiter)
	}
}

func TestGVAIdempotence(t *testing.T) {
	dir := t.TempDir()
	r1, r2 := testutil.PairedReads(t, dir, "S1")
	path := testutil.Manifest(t, dir, "samples.csv", ";",
		append(gvaHeader, "CARRERA", "ST_WGS"),
		[]string{"S1", "P1", "01/02/2024", "Klebsiella pneumoniae", "VIGILANCIA", r1, r2, "240101_CLIN002", "ST11"})

	v := newTestValidator(t, gvaConfig("240101_CLIN002"))
	first := v.Validate(path, "")
	if first.Status != StatusWarnings {
		t.Fatalf("expected warnings on first pass, got %d %+v", first.Status, first.Findings())
	}

	want := []string{
		"id", "id2", "collection_date", "organism", "relevance", "illumina_r1", "illumina_r2",
		"run_id", "st", "outbreak_id", "confirmation_note", "comment",
	}
	if diff := cmp.Diff(want, first.Table.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	once := filepath.Join(dir, "once.csv")
	testutil.RequireNoError(t, first.Table.WriteFile(once), "write first pass")

	second := v.Validate(once, "")
	if second.Status != StatusClean {
		t.Errorf("normalized gva manifest should revalidate cleanly, got %+v", second.Findings())
	}
}

func TestRowRules(t *testing.T) {
	dir := t.TempDir()
	r1, r2 := testutil.PairedReads(t, dir, "S1")
	ont := testutil.WriteFastq(t, dir, "ont.fastq")
	modelCfg := config.DefaultConfig()
	modelCfg.Params.Nanopore.DoradoModel = "dna_r10.4.1_e8.2_400bps_sup@v4.2.0"
	speciesCfg := config.DefaultConfig()
	speciesCfg.Species = config.SpeciesList{"escherichia_coli"}
	strictFiles := config.DefaultConfig()
	strictFiles.Validation.MissingFileSeverity = "error"
	noFuture := config.DefaultConfig()
	noFuture.Validation.CheckFutureDates = false

	tests := []struct {
		name     string
		cfg      *config.Config
		header   []string
		row      []string
		errors   []string
		warnings []string
	}{
		{
			name:   "clean illumina row",
			header: []string{"id", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", r1, r2},
		},
		{
			name:   "bad identifier characters",
			header: []string{"id", "illumina_r1", "illumina_r2"},
			row:    []string{"S 1/a", r1, r2},
			errors: []string{"INVALID_IDENTIFIER:id"},
		},
		{
			name:   "unicode identifier",
			header: []string{"id", "illumina_r1", "illumina_r2"},
			row:    []string{"muestra-Ñ_1", r1, r2},
		},
		{
			name:   "missing R2 mate",
			header: []string{"id", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", r1, ""},
			errors: []string{"MISSING_MATE:illumina_r2"},
		},
		{
			name:   "missing R1 mate",
			header: []string{"id", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", "", r2},
			errors: []string{"MISSING_MATE:illumina_r1"},
		},
		{
			name:   "no data source",
			header: []string{"id", "illumina_r1", "illumina_r2", "nanopore"},
			row:    []string{"S1", "", "", ""},
			errors: []string{"NO_DATA:"},
		},
		{
			name:   "unparseable date",
			header: []string{"id", "collection_date", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", "yesterday", r1, r2},
			errors: []string{"INVALID_DATE:collection_date"},
		},
		{
			name:   "future date",
			header: []string{"id", "collection_date", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", "2027-01-01", r1, r2},
			errors: []string{"FUTURE_DATE:collection_date"},
		},
		{
			name:   "future date check disabled",
			cfg:    noFuture,
			header: []string{"id", "collection_date", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", "2027-01-01", r1, r2},
		},
		{
			name:     "empty organism in normal mode",
			header:   []string{"id", "organism", "illumina_r1", "illumina_r2"},
			row:      []string{"S1", "", r1, r2},
			warnings: []string{"MISSING_VALUE:organism"},
		},
		{
			name:     "unknown organism spelled differently",
			header:   []string{"id", "organism", "illumina_r1", "illumina_r2"},
			row:      []string{"S1", " Unknown ", r1, r2},
			warnings: []string{"NORMALIZED:organism"},
		},
		{
			name:   "unknown organism already canonical",
			header: []string{"id", "organism", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", "unknown", r1, r2},
		},
		{
			name:     "lone mate is still checked on disk",
			header:   []string{"id", "illumina_r1", "illumina_r2"},
			row:      []string{"S1", filepath.Join(dir, "gone_R1.fastq.gz"), ""},
			errors:   []string{"MISSING_MATE:illumina_r2"},
			warnings: []string{"MISSING_FILE:illumina_r1"},
		},
		{
			name:     "species outside allow-list",
			cfg:      speciesCfg,
			header:   []string{"id", "organism", "illumina_r1", "illumina_r2"},
			row:      []string{"S1", "klebsiella_pneumoniae", r1, r2},
			warnings: []string{"UNKNOWN_SPECIES:organism"},
		},
		{
			name:   "species inside allow-list",
			cfg:    speciesCfg,
			header: []string{"id", "organism", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", "escherichia_coli", r1, r2},
		},
		{
			name:   "nanopore with configured model",
			cfg:    modelCfg,
			header: []string{"id", "nanopore"},
			row:    []string{"S1", ont},
		},
		{
			name:   "row model takes precedence",
			header: []string{"id", "nanopore", "dorado_model"},
			row:    []string{"S1", ont, "dna_r9.4.1_450bps_hac@v3.3"},
		},
		{
			name:     "unknown model",
			header:   []string{"id", "nanopore", "dorado_model"},
			row:      []string{"S1", ont, "dna_r11_future@v9"},
			warnings: []string{"UNKNOWN_MODEL:dorado_model"},
		},
		{
			name:     "model without nanopore file",
			header:   []string{"id", "illumina_r1", "illumina_r2", "nanopore", "dorado_model"},
			row:      []string{"S1", r1, r2, "", "dna_r9.4.1_450bps_hac@v3.3"},
			warnings: []string{"ORPHAN_MODEL:dorado_model"},
		},
		{
			name:     "missing file is a warning by default",
			header:   []string{"id", "illumina_r1", "illumina_r2"},
			row:      []string{"S1", filepath.Join(dir, "nope_R1.fq.gz"), r2},
			warnings: []string{"MISSING_FILE:illumina_r1"},
		},
		{
			name:   "missing file severity raised to error",
			cfg:    strictFiles,
			header: []string{"id", "illumina_r1", "illumina_r2"},
			row:    []string{"S1", filepath.Join(dir, "nope_R1.fq.gz"), r2},
			errors: []string{"MISSING_FILE:illumina_r1"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.Manifest(t, dir, filepath.Join("rules", string(rune('a'+i))+".csv"), ";", tt.header, tt.row)

			res := newTestValidator(t, tt.cfg).Validate(path, "")
			if len(res.Fatal) != 0 {
				t.Fatalf("unexpected fatal findings: %+v", res.Fatal)
			}
			if diff := cmp.Diff(tt.errors, types(res.Errors), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.warnings, types(res.Warnings), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGVARowRules(t *testing.T) {
	dir := t.TempDir()
	r1, r2 := testutil.PairedReads(t, dir, "S1")
	header := append(gvaHeader, "CARRERA")

	tests := []struct {
		name     string
		row      []string
		errors   []string
		warnings []string
	}{
		{
			name: "clean",
			row:  []string{"S1", "P1", "2024-01-01", "escherichia_coli", "VIGILANCIA", r1, r2, "240101_CLIN002"},
		},
		{
			name:   "missing request identifier",
			row:    []string{"S1", "", "2024-01-01", "escherichia_coli", "VIGILANCIA", r1, r2, "240101_CLIN002"},
			errors: []string{"MISSING_VALUE:id2"},
		},
		{
			name:   "empty organism and relevance",
			row:    []string{"S1", "P1", "2024-01-01", "", "", r1, r2, "240101_CLIN002"},
			errors: []string{"MISSING_VALUE:organism", "MISSING_VALUE:relevance"},
		},
		{
			name:     "empty collection date",
			row:      []string{"S1", "P1", "", "escherichia_coli", "VIGILANCIA", r1, r2, "240101_CLIN002"},
			warnings: []string{"MISSING_VALUE:collection_date"},
		},
		{
			name:     "unknown organism in gva",
			row:      []string{"S1", "P1", "2024-01-01", "UNKNOWN", "VIGILANCIA", r1, r2, "240101_CLIN002"},
			errors:   []string{"MISSING_VALUE:organism"},
			warnings: []string{"NORMALIZED:organism"},
		},
		{
			name:   "malformed run identifier",
			row:    []string{"S1", "P1", "2024-01-01", "escherichia_coli", "VIGILANCIA", r1, r2, "CLIN002"},
			errors: []string{"INVALID_RUN_ID:run_id"},
		},
		{
			name:   "empty run identifier",
			row:    []string{"S1", "P1", "2024-01-01", "escherichia_coli", "VIGILANCIA", r1, r2, ""},
			errors: []string{"MISSING_VALUE:run_id"},
		},
		{
			name:     "run identifier from another run",
			row:      []string{"S1", "P1", "2024-01-01", "escherichia_coli", "VIGILANCIA", r1, r2, "240102_CLIN003"},
			warnings: []string{"RUN_ID_MISMATCH:run_id"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.Manifest(t, dir, filepath.Join("gva", string(rune('a'+i))+".csv"), ";", header, tt.row)

			res := newTestValidator(t, gvaConfig("240101_CLIN002")).Validate(path, "")
			if len(res.Fatal) != 0 {
				t.Fatalf("unexpected fatal findings: %+v", res.Fatal)
			}
			if diff := cmp.Diff(tt.errors, types(res.Errors), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.warnings, types(res.Warnings), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestColumnChecks(t *testing.T) {
	dir := t.TempDir()
	r1, r2 := testutil.PairedReads(t, dir, "S1")

	t.Run("missing identifier column", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "noid.csv", ";", []string{"sample", "illumina_r1"}, []string{"S1", r1})
		res := newTestValidator(t, nil).Validate(path, "")
		if diff := cmp.Diff([]string{"MISSING_COLUMN:id"}, types(res.Fatal)); diff != "" {
			t.Errorf("fatal mismatch (-want +got):\n%s", diff)
		}
		if res.Stats.Rows != 0 {
			t.Errorf("expected no rows processed, got %d", res.Stats.Rows)
		}
	})

	t.Run("no data column", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "nodata.csv", ";", []string{"id", "organism"}, []string{"S1", "x"})
		res := newTestValidator(t, nil).Validate(path, "")
		if diff := cmp.Diff([]string{"MISSING_COLUMN:"}, types(res.Fatal)); diff != "" {
			t.Errorf("fatal mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("gva missing request column", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "noreq.csv", ";",
			[]string{"CODIGO_MUESTRA_ORIGEN", "ILLUMINA_R1", "ILLUMINA_R2"}, []string{"S1", r1, r2})
		res := newTestValidator(t, gvaConfig("240101_CLIN002")).Validate(path, "")
		if diff := cmp.Diff([]string{"MISSING_COLUMN:id2"}, types(res.Fatal)); diff != "" {
			t.Errorf("fatal mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(res.Fatal[0].Message, "PETICION (id2)") {
			t.Errorf("message should name the gva column: %q", res.Fatal[0].Message)
		}
	})

	t.Run("gva missing important columns", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "noimportant.csv", ";",
			[]string{"CODIGO_MUESTRA_ORIGEN", "PETICION", "ILLUMINA_R1", "ILLUMINA_R2"}, []string{"S1", "P1", r1, r2})
		res := newTestValidator(t, gvaConfig("240101_CLIN002")).Validate(path, "")
		want := []string{"MISSING_COLUMN:collection_date", "MISSING_COLUMN:organism", "MISSING_COLUMN:relevance"}
		if diff := cmp.Diff(want, types(res.Errors)); diff != "" {
			t.Errorf("errors mismatch (-want +got):\n%s", diff)
		}
		if res.Table == nil {
			t.Error("missing important columns must not block the table")
		}
	})

	t.Run("every empty identifier is reported", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "ids.csv", ";", []string{"id", "illumina_r1", "illumina_r2"},
			[]string{"", r1, r2}, []string{"S2", r1, r2}, []string{" ", r1, r2})
		res := newTestValidator(t, nil).Validate(path, "")
		if len(res.Fatal) != 2 || res.Fatal[0].Row != 2 || res.Fatal[1].Row != 4 {
			t.Errorf("unexpected fatal findings %+v", res.Fatal)
		}
		if res.Fatal[0].ID != "row_2" {
			t.Errorf("rows without identifiers should get a synthetic label, got %q", res.Fatal[0].ID)
		}
	})
}

func TestRenameConflicts(t *testing.T) {
	dir := t.TempDir()
	r1, r2 := testutil.PairedReads(t, dir, "S1")
	v := newTestValidator(t, gvaConfig("240101_CLIN002"))

	t.Run("empty canonical column is replaced", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "empty.csv", ";",
			[]string{"id", "CODIGO_MUESTRA_ORIGEN", "PETICION", "ILLUMINA_R1", "ILLUMINA_R2"},
			[]string{"", "S1", "P1", r1, r2})
		res := v.Validate(path, "")
		if len(res.Fatal) != 0 {
			t.Fatalf("unexpected fatal findings %+v", res.Fatal)
		}
		if res.Table.Index("id") != 0 || res.Table.Value(0, "id") != "S1" {
			t.Errorf("unexpected header %v", res.Table.Header)
		}
		for _, f := range res.Errors {
			if f.Type == TypeRenameConflict {
				t.Errorf("unexpected conflict %+v", f)
			}
		}
	})

	t.Run("non-empty canonical column is kept", func(t *testing.T) {
		path := testutil.Manifest(t, dir, "full.csv", ";",
			[]string{"id", "CODIGO_MUESTRA_ORIGEN", "PETICION", "ILLUMINA_R1", "ILLUMINA_R2"},
			[]string{"S1", "OTHER", "P1", r1, r2})
		res := v.Validate(path, "")
		if res.Table == nil {
			t.Fatalf("unexpected fatal findings %+v", res.Fatal)
		}
		if !res.Table.HasColumn("CODIGO_MUESTRA_ORIGEN") {
			t.Error("conflicting source column should pass through")
		}
		if got := types(res.Errors); len(got) == 0 || got[0] != "RENAME_CONFLICT:CODIGO_MUESTRA_ORIGEN" {
			t.Errorf("expected rename conflict first, got %v", got)
		}
	})

	t.Run("second nanopore source conflicts", func(t *testing.T) {
		ont := testutil.WriteFastq(t, dir, "ont.fastq")
		path := testutil.Manifest(t, dir, "ont.csv", ";",
			[]string{"CODIGO_MUESTRA_ORIGEN", "PETICION", "NANOPORE", "ONT", "MODELO_DORADO"},
			[]string{"S1", "P1", ont, ont, "dna_r9.4.1_450bps_sup@v3.3"})
		res := v.Validate(path, "")
		if got := types(res.Errors); len(got) == 0 || got[0] != "RENAME_CONFLICT:ONT" {
			t.Errorf("expected ONT conflict, got %v", got)
		}
	})
}

func TestInfrastructureFailuresAreFatal(t *testing.T) {
	dir := t.TempDir()

	res := newTestValidator(t, nil).Validate(filepath.Join(dir, "missing.csv"), "")
	if diff := cmp.Diff([]string{"UNREADABLE:"}, types(res.Fatal)); diff != "" {
		t.Errorf("fatal mismatch (-want +got):\n%s", diff)
	}
	if res.DelimiterName() != "" {
		t.Errorf("unreadable file has no delimiter, got %q", res.DelimiterName())
	}

	badConfig := testutil.WriteFile(t, dir, "config.yaml", "mode: [broken")
	samples := testutil.WriteFile(t, dir, "samples.csv", "id;nanopore\nS1;x\n")
	res = ValidateFile(samples, badConfig, "", Options{})
	if diff := cmp.Diff([]string{"INVALID_CONFIG:config"}, types(res.Fatal)); diff != "" {
		t.Errorf("fatal mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFileUsesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testutil.WriteFile(t, dir, "config.yaml", "mode: gva\nrun_name: 240101_ZZZZ002\n")
	samples := testutil.WriteFile(t, dir, "samples.csv", "id;nanopore\nS1;x\n")

	if res := ValidateFile(samples, cfgPath, "", Options{}); res.Status != StatusFatal {
		t.Errorf("expected gva config to be applied, got status %d", res.Status)
	}
	if res := ValidateFile(samples, cfgPath, "normal", Options{}); res.Mode != "normal" {
		t.Errorf("expected override to win, got %q", res.Mode)
	}
}

func TestValidateTableDoesNotModifyInput(t *testing.T) {
	table, err := manifest.Parse([]byte("id;collection_date;illumina_r1;illumina_r2\nS1;01/02/24;;\n"))
	testutil.RequireNoError(t, err, "parse")

	res := newTestValidator(t, nil).ValidateTable(table, "")
	if table.Rows[0][1] != "01/02/24" {
		t.Error("ValidateTable modified its input")
	}
	if res.Table.Rows[0][1] != "2024-02-01" {
		t.Errorf("expected normalized copy, got %q", res.Table.Rows[0][1])
	}
}

func TestStatusOrdering(t *testing.T) {
	tests := []struct {
		fatal, errs, warnings int
		want                  Status
	}{
		{0, 0, 0, StatusClean},
		{0, 0, 3, StatusWarnings},
		{0, 1, 3, StatusErrors},
		{1, 1, 3, StatusFatal},
		{1, 0, 0, StatusFatal},
	}
	for _, tt := range tests {
		if got := statusOf(tt.fatal, tt.errs, tt.warnings); got != tt.want {
			t.Errorf("statusOf(%d,%d,%d) = %v, want %v", tt.fatal, tt.errs, tt.warnings, got, tt.want)
		}
	}
	if StatusWarnings.Failed() || !StatusErrors.Failed() {
		t.Error("Failed() should start at StatusErrors")
	}
}

func TestLogsPhasesNotFindings(t *testing.T) {
	logger, logs := testutil.ObservedLogger(zapcore.DebugLevel)
	path := testutil.TempFile(t, "samples.csv", "id;organism;illumina_r1;illumina_r2\nS1;E. coli;;\n")

	res := New(nil, Options{Logger: logger}).Validate(path, "")
	if res.Status != StatusErrors {
		t.Fatalf("expected status 2, got %d", res.Status)
	}

	var messages []string
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	want := []string{"manifest loaded", "schema resolved", "validation finished"}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Errorf("log entries mismatch (-want +got):\n%s", diff)
	}
	for _, e := range logs.All() {
		for _, f := range res.Findings() {
			if strings.Contains(e.Message, f.Message) {
				t.Errorf("finding %q leaked into the log", f.Message)
			}
		}
	}
}

func TestKnownModelsAreScopedToConfig(t *testing.T) {
	const extra = "dna_r11_future@v9"
	extended := config.DefaultConfig()
	extended.Params.Nanopore.KnownModels = []string{extra}

	if !New(extended, Options{}).knownModel(extra) {
		t.Errorf("%q should be accepted when listed in params.nanopore.known_models", extra)
	}
	if New(config.DefaultConfig(), Options{}).knownModel(extra) {
		t.Errorf("%q leaked into a validator without the extra models", extra)
	}
	if !New(nil, Options{}).knownModel("dna_r9.4.1_450bps_hac@v3.3") {
		t.Error("built-in model should always be accepted")
	}
}

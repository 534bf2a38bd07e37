// Package samplesinfo scaffolds a sample manifest from a directory of
// FASTQ files, ready to be completed by hand and validated.
package samplesinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/nishad/epibac/internal/errors"
	"github.com/nishad/epibac/internal/logging"
	"github.com/nishad/epibac/internal/manifest"
	"github.com/nishad/epibac/internal/schema"
	"go.uber.org/zap"
)

// Platform is the sequencing technology of the files in a directory.
type Platform string

const (
	PlatformIllumina Platform = "illumina"
	PlatformNanopore Platform = "nanopore"
)

// ParsePlatform parses a platform name, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformIllumina, PlatformNanopore:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected illumina or nanopore)", s)
	}
}

// Extensions are the recognized FASTQ file suffixes, longest first.
var Extensions = []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"}

const fastqExt = `\.f(?:ast)?q(?:\.gz)?`

// illuminaPatterns capture the sample name and the read marker. The first
// match wins, so the more specific bcl2fastq layout comes first.
var illuminaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)_S\d+_R([12])(?:_001)?` + fastqExt + `$`),
	regexp.MustCompile(`(?i)^(.+?)_R([12])(?:_001)?` + fastqExt + `$`),
	regexp.MustCompile(`(?i)^(.+?)\.R([12])` + fastqExt + `$`),
	regexp.MustCompile(`(?i)^(.+?)_([FR])` + fastqExt + `$`),
}

// Sample is one manifest row to be written.
type Sample struct {
	ID       string
	R1       string
	R2       string
	Nanopore string
}

// IncompleteError lists Illumina samples that lack one of their mates.
type IncompleteError struct {
	Samples []Sample
}

func (e *IncompleteError) Error() string {
	parts := make([]string, len(e.Samples))
	for i, s := range e.Samples {
		r1, r2 := s.R1, s.R2
		if r1 == "" {
			r1 = "missing R1"
		}
		if r2 == "" {
			r2 = "missing R2"
		}
		parts[i] = fmt.Sprintf("%s (%s, %s)", s.ID, r1, r2)
	}
	return fmt.Sprintf("%d sample(s) without both R1 and R2: %s", len(e.Samples), strings.Join(parts, "; "))
}

// ReadOf classifies an Illumina file name. It returns the sample name and
// 1 or 2 for the read, or ok=false when the name follows no known layout.
func ReadOf(name string) (sample string, read int, ok bool) {
	for _, re := range illuminaPatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		switch strings.ToUpper(m[2]) {
		case "1", "F":
			return m[1], 1, true
		default:
			return m[1], 2, true
		}
	}
	return "", 0, false
}

// TrimExtension removes a recognized FASTQ suffix from name.
func TrimExtension(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)], true
		}
	}
	return name, false
}

// Options configures Generate.
type Options struct {
	Mode      schema.Mode
	RunName   string
	Platform  Platform
	FastqDir  string
	OutputDir string // defaults to the parent of FastqDir
	Logger    *zap.Logger
}

// Result describes a generated manifest.
type Result struct {
	Path    string
	Samples []Sample
	Skipped []string // files that looked like FASTQ but matched no read layout
}

// FileName returns the manifest file name for a run.
func FileName(runName string) string {
	return fmt.Sprintf("samplesinfo_%s.csv", runName)
}

// Generate scans opts.FastqDir and writes a semicolon-separated manifest
// skeleton with one row per sample.
func Generate(opts Options) (*Result, error) {
	const op apperrors.Op = "samplesinfo.Generate"

	logger := logging.OrNop(opts.Logger)

	runName := strings.TrimSpace(opts.RunName)
	if runName == "" {
		return nil, apperrors.E(op, apperrors.KindValidation, "run name is required")
	}
	if opts.Mode == schema.ModeGVA {
		if err := schema.ValidateRunName(runName); err != nil {
			return nil, apperrors.E(op, apperrors.KindValidation, err)
		}
	}

	files, err := ListFastq(opts.FastqDir)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	res := &Result{}
	switch opts.Platform {
	case PlatformIllumina:
		res.Samples, res.Skipped, err = PairIllumina(files)
	case PlatformNanopore:
		res.Samples, err = GroupNanopore(files)
	default:
		err = fmt.Errorf("unknown platform %q", opts.Platform)
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindValidation, err)
	}
	for _, name := range res.Skipped {
		logger.Warn("cannot tell R1 from R2, file ignored", zap.String("file", name))
	}

	outDir := opts.OutputDir
	if outDir == "" {
		abs, err := filepath.Abs(opts.FastqDir)
		if err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err)
		}
		outDir = filepath.Dir(abs)
	}
	res.Path = filepath.Join(outDir, FileName(runName))

	if err := Table(opts.Mode, res.Samples).WriteFile(res.Path); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	logger.Debug("samples manifest written",
		zap.String("path", res.Path),
		zap.Int("samples", len(res.Samples)))
	return res, nil
}

// ListFastq returns the absolute paths of the FASTQ files directly inside
// dir, sorted by name.
func ListFastq(dir string) ([]string, error) {
	const op apperrors.Op = "samplesinfo.ListFastq"

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindIO, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindIO, err, "cannot read FASTQ directory")
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := TrimExtension(e.Name()); ok {
			files = append(files, filepath.Join(abs, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, apperrors.E(op, apperrors.KindValidation, fmt.Sprintf("no FASTQ files found in %s", dir))
	}
	return files, nil
}

// PairIllumina groups files into R1/R2 pairs by sample name. Files whose
// names match no read layout are returned in skipped. A sample missing a
// mate yields an *IncompleteError.
func PairIllumina(files []string) (samples []Sample, skipped []string, err error) {
	byID := make(map[string]*Sample)
	for _, path := range files {
		name := filepath.Base(path)
		id, read, ok := ReadOf(name)
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		s := byID[id]
		if s == nil {
			s = &Sample{ID: id}
			byID[id] = s
		}
		slot := &s.R1
		if read == 2 {
			slot = &s.R2
		}
		if *slot != "" {
			return nil, skipped, fmt.Errorf("sample %s has more than one R%d file: %s and %s",
				id, read, filepath.Base(*slot), name)
		}
		*slot = path
	}

	var incomplete []Sample
	for _, s := range byID {
		samples = append(samples, *s)
		if s.R1 == "" || s.R2 == "" {
			incomplete = append(incomplete, *s)
		}
	}
	sortSamples(samples)
	if len(incomplete) > 0 {
		sortSamples(incomplete)
		return nil, skipped, &IncompleteError{Samples: incomplete}
	}
	return samples, skipped, nil
}

// GroupNanopore makes one sample per file, named after the file.
func GroupNanopore(files []string) ([]Sample, error) {
	seen := make(map[string]string)
	samples := make([]Sample, 0, len(files))
	for _, path := range files {
		name := filepath.Base(path)
		id, _ := TrimExtension(name)
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("sample %s has more than one nanopore file: %s and %s", id, prev, name)
		}
		seen[id] = name
		samples = append(samples, Sample{ID: id, Nanopore: path})
	}
	sortSamples(samples)
	return samples, nil
}

func sortSamples(samples []Sample) {
	sort.Slice(samples, func(i, j int) bool { return samples[i].ID < samples[j].ID })
}

// gvaHeader uses the institutional column names so the skeleton can be
// filled in by the laboratory information system.
var gvaHeader = []string{
	"CODIGO_MUESTRA_ORIGEN", "PETICION", "FECHA_TOMA_MUESTRA", "ESPECIE_SECUENCIA",
	"MOTIVO_WGS", "NUM_BROTE", "CONFIRMACION", "COMENTARIO_WGS",
	"ILLUMINA_R1", "ILLUMINA_R2", "NANOPORE",
}

var normalHeader = []string{
	manifest.ColID, manifest.ColCollectionDate, manifest.ColOrganism,
	manifest.ColIlluminaR1, manifest.ColIlluminaR2, manifest.ColNanopore,
}

// Table builds the manifest skeleton for mode. Only the identifier and
// file columns are filled.
func Table(mode schema.Mode, samples []Sample) *manifest.Table {
	header := normalHeader
	if mode == schema.ModeGVA {
		header = gvaHeader
	}
	width := len(header)

	t := &manifest.Table{
		Header:    append([]string(nil), header...),
		Rows:      make([][]string, 0, len(samples)),
		Delimiter: manifest.Semicolon,
	}
	for _, s := range samples {
		row := make([]string, width)
		row[0] = s.ID
		row[width-3] = s.R1
		row[width-2] = s.R2
		row[width-1] = s.Nanopore
		t.Rows = append(t.Rows, row)
	}
	return t
}

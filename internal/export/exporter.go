// Package export persists the outcome of a validation pass: the
// normalized manifest, the text report and optionally the findings as
// JSON.
package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/nishad/epibac/internal/errors"
	"github.com/nishad/epibac/internal/report"
	"github.com/nishad/epibac/internal/validator"
	"go.uber.org/zap"
)

// Default file names used inside an output directory.
const (
	ManifestName = "samples_info_validated.csv"
	ReportName   = "validation_report.txt"
	FindingsName = "validation_findings.json"
)

// Config holds the export configuration. Empty paths are skipped.
type Config struct {
	ManifestPath string
	ReportPath   string
	FindingsPath string
}

// InDir returns a Config writing the default file names into dir. The
// JSON findings file is only included when withFindings is set.
func InDir(dir string, withFindings bool) *Config {
	cfg := &Config{
		ManifestPath: filepath.Join(dir, ManifestName),
		ReportPath:   filepath.Join(dir, ReportName),
	}
	if withFindings {
		cfg.FindingsPath = filepath.Join(dir, FindingsName)
	}
	return cfg
}

// Stats describes what an export wrote.
type Stats struct {
	ManifestWritten bool          `json:"manifest_written"`
	ReportWritten   bool          `json:"report_written"`
	FindingsWritten bool          `json:"findings_written"`
	Rows            int           `json:"rows"`
	Duration        time.Duration `json:"duration_ns"`
}

// Exporter writes validation results to disk.
type Exporter struct {
	cfg    *Config
	logger *zap.Logger
}

// NewExporter creates a new exporter instance
func NewExporter(cfg *Config, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{cfg: cfg, logger: logger}
}

// Export writes r. The normalized manifest keeps the delimiter it was read
// with and is skipped when r is fatal; the report is always written.
// Every file is written to a temporary sibling first and renamed into
// place, so readers never see a partial file.
func (e *Exporter) Export(r *validator.Result) (*Stats, error) {
	const op apperrors.Op = "export.Export"
	start := time.Now()
	stats := &Stats{}

	if e.cfg.ManifestPath != "" && r.Table != nil {
		var buf bytes.Buffer
		if err := r.Table.Write(&buf); err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err, "failed to encode manifest")
		}
		if err := writeAtomic(e.cfg.ManifestPath, buf.Bytes()); err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err, "failed to write manifest")
		}
		stats.ManifestWritten = true
		stats.Rows = len(r.Table.Rows)
		e.logger.Debug("normalized manifest written",
			zap.String("path", e.cfg.ManifestPath),
			zap.Int("rows", stats.Rows))
	}

	if e.cfg.ReportPath != "" {
		if err := writeAtomic(e.cfg.ReportPath, []byte(report.Render(r))); err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err, "failed to write report")
		}
		stats.ReportWritten = true
		e.logger.Debug("report written", zap.String("path", e.cfg.ReportPath))
	}

	if e.cfg.FindingsPath != "" {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err, "failed to encode findings")
		}
		if err := writeAtomic(e.cfg.FindingsPath, append(data, '\n')); err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err, "failed to write findings")
		}
		stats.FindingsWritten = true
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// WriteResult is a shortcut for NewExporter(cfg, nil).Export(r).
func WriteResult(r *validator.Result, cfg *Config) (*Stats, error) {
	return NewExporter(cfg, nil).Export(r)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tempPath := path + ".tmp"
	os.Remove(tempPath)

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}

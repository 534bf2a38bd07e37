// Package validator checks a sample manifest against the schema of its
// mode, corrects the common data-entry mistakes it can and classifies the
// rest as warnings, errors or fatal problems.
package validator

import (
	"errors"
	"strings"
	"time"

	"github.com/nishad/epibac/internal/config"
	apperrors "github.com/nishad/epibac/internal/errors"
	"github.com/nishad/epibac/internal/logging"
	"github.com/nishad/epibac/internal/manifest"
	"github.com/nishad/epibac/internal/schema"
	"go.uber.org/zap"
)

// Options tunes a Validator. The zero value is usable.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time // clock used for future-date checks
}

// Validator validates sample manifests under one configuration. It keeps
// no state between calls, so one Validator may serve concurrent callers.
type Validator struct {
	cfg                 *config.Config
	logger              *zap.Logger
	now                 func() time.Time
	missingFileSeverity Severity
}

// New creates a validator for cfg. A nil cfg means the defaults.
func New(cfg *config.Config, opts Options) *Validator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	v := &Validator{
		cfg:                 cfg,
		logger:              logging.OrNop(opts.Logger),
		now:                 opts.Now,
		missingFileSeverity: SeverityWarning,
	}
	if v.now == nil {
		v.now = time.Now
	}
	if strings.EqualFold(cfg.Validation.MissingFileSeverity, "error") {
		v.missingFileSeverity = SeverityError
	}
	return v
}

// ValidateFile loads the configuration at configPath (defaults when empty
// or absent) and validates the manifest at samplesPath. A configuration
// that cannot be loaded is reported as a fatal finding.
func ValidateFile(samplesPath, configPath, mode string, opts Options) *Result {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			c := &collector{}
			c.add(Finding{
				Severity: SeverityFatal,
				Field:    "config",
				Type:     TypeConfig,
				Message:  apperrors.Message(err),
			})
			return c.result("", "", 0, nil, Stats{})
		}
		cfg = loaded
	}
	return New(cfg, opts).Validate(samplesPath, mode)
}

// Validate loads the manifest at path and validates it. mode overrides
// the configured mode when non-empty. Problems with the file, including
// an unreadable one, are reported in the Result and never as an error.
func (v *Validator) Validate(path, mode string) *Result {
	table, err := manifest.Load(path)
	if err != nil {
		v.logger.Debug("manifest load failed", zap.String("path", path), zap.Error(err))
		c := &collector{}
		c.add(Finding{
			Severity: SeverityFatal,
			Type:     TypeUnreadable,
			Message:  apperrors.Message(err),
		})
		return c.result("", "", 0, nil, Stats{})
	}

	v.logger.Debug("manifest loaded",
		zap.String("path", path),
		zap.String("delimiter", manifest.DelimiterName(table.Delimiter)),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Header)))

	return v.ValidateTable(table, mode)
}

// ValidateTable validates a manifest already in memory. t is not modified;
// the normalized copy is returned in the Result.
func (v *Validator) ValidateTable(t *manifest.Table, mode string) *Result {
	p := &pass{
		v:     v,
		table: t.Clone(),
	}

	sch, err := schema.Resolve(v.cfg, mode)
	if err != nil {
		typ, field := TypeRunName, "run_name"
		if errors.Is(err, schema.ErrUnknownMode) {
			typ, field = TypeMode, "mode"
		}
		p.c.add(Finding{Severity: SeverityFatal, Field: field, Type: typ, Message: err.Error()})
		return p.finish()
	}
	p.sch = sch
	v.logger.Debug("schema resolved", zap.String("mode", string(sch.Mode)), zap.String("run_name", sch.RunName))

	p.normalizeColumns()
	if p.c.hasFatal() {
		return p.finish()
	}

	samples := manifest.Samples(p.table)
	p.checkIdentifiers(samples)
	if p.c.hasFatal() {
		return p.finish()
	}

	// Rows counts rows that reached the row checks; a fatal pass leaves it 0.
	p.stats.Rows = len(samples)
	for _, s := range samples {
		p.checkIdentifier(s)
		p.checkDate(s)
		p.checkOrganism(s)
		p.checkRelevance(s)
		p.checkRunID(s)
		p.checkDataSource(s)
		p.checkIllumina(s)
		p.checkNanopore(s)
	}

	p.table = manifest.FromSamples(p.table.Header, samples, p.table.Delimiter)
	return p.finish()
}

// pass holds the state of one validation run.
type pass struct {
	v     *Validator
	sch   *schema.Schema
	table *manifest.Table
	c     collector
	stats Stats
}

func (p *pass) finish() *Result {
	var mode schema.Mode
	var runName string
	if p.sch != nil {
		mode, runName = p.sch.Mode, p.sch.RunName
	}
	p.stats.Columns = len(p.table.Header)

	r := p.c.result(mode, runName, p.table.Delimiter, p.table, p.stats)
	p.v.logger.Debug("validation finished",
		zap.Stringer("status", r.Status),
		zap.Int("fatal", len(r.Fatal)),
		zap.Int("errors", len(r.Errors)),
		zap.Int("warnings", len(r.Warnings)))
	return r
}

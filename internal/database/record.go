package database

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/nishad/epibac/internal/report"
	"github.com/nishad/epibac/internal/validator"
)

// RecordResult stores the outcome of validating manifestPath and returns
// the new run. source names the caller ("cli" or "api").
func (db *DB) RecordResult(manifestPath, source string, r *validator.Result) (*Run, error) {
	run := &Run{
		ID:             uuid.NewString(),
		ManifestPath:   manifestPath,
		ManifestSHA256: fileDigest(manifestPath),
		Mode:           string(r.Mode),
		RunName:        r.RunName,
		Delimiter:      r.DelimiterName(),
		Status:         int(r.Status),
		FatalCount:     len(r.Fatal),
		ErrorCount:     len(r.Errors),
		WarningCount:   len(r.Warnings),
		RowCount:       r.Stats.Rows,
		Source:         source,
		Report:         report.Render(r),
	}

	all := r.Findings()
	findings := make([]Finding, len(all))
	for i, f := range all {
		findings[i] = Finding{
			RunID:    run.ID,
			Seq:      i,
			Severity: f.Severity.String(),
			Row:      f.Row,
			SampleID: f.ID,
			Field:    f.Field,
			Type:     f.Type,
			Message:  f.Message,
		}
	}

	if err := db.InsertRun(run, findings); err != nil {
		return nil, err
	}
	return run, nil
}

// fileDigest returns the hex SHA-256 of the file at path, or "" when it
// cannot be read.
func fileDigest(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

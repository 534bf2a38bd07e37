// Package database provides SQLite-backed storage for the history of
// validation runs and the findings each run produced.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	apperrors "github.com/nishad/epibac/internal/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a run id is not in the history.
var ErrNotFound = errors.New("validation run not found")

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// Initialize creates and configures the database connection, creating the
// parent directory and the schema when needed.
func Initialize(path string) (*DB, error) {
	const op apperrors.Op = "database.Initialize"

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.E(op, apperrors.KindDatabase, err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_sync=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err, "failed to open database")
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperrors.E(op, apperrors.KindDatabase, err, fmt.Sprintf("failed to set pragma %s", pragma))
		}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, apperrors.E(op, apperrors.KindDatabase, err, "failed to create tables")
	}

	// SQLite serializes writers; a small pool is plenty for the API server.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:     db,
		path:   path,
		logger: zap.NewNop(),
	}, nil
}

// SetLogger sets the logger used to report skipped rows.
func (db *DB) SetLogger(logger *zap.Logger) {
	if logger != nil {
		db.logger = logger
	}
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		manifest_path TEXT NOT NULL,
		manifest_sha256 TEXT,
		mode TEXT,
		run_name TEXT,
		delimiter TEXT,
		status INTEGER NOT NULL,
		fatal_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		warning_count INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		source TEXT,
		report TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS findings (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		severity TEXT NOT NULL,
		row_number INTEGER NOT NULL,
		sample_id TEXT,
		field TEXT,
		type TEXT,
		message TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_manifest ON runs(manifest_path);
	`
	_, err := db.Exec(schema)
	return err
}

// InsertRun stores a run and its findings in one transaction. An empty
// run.CreatedAt is set to the current time.
func (db *DB) InsertRun(run *Run, findings []Finding) error {
	const op apperrors.Op = "database.InsertRun"

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := db.Begin()
	if err != nil {
		return apperrors.E(op, apperrors.KindDatabase, err, "failed to start transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, manifest_path, manifest_sha256, mode, run_name, delimiter, status,
			fatal_count, error_count, warning_count, row_count, source, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ManifestPath, run.ManifestSHA256, run.Mode, run.RunName, run.Delimiter, run.Status,
		run.FatalCount, run.ErrorCount, run.WarningCount, run.RowCount, run.Source, run.Report,
		run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return apperrors.E(op, apperrors.KindDatabase, err, "failed to insert run")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO findings (run_id, seq, severity, row_number, sample_id, field, type, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.E(op, apperrors.KindDatabase, err, "failed to prepare finding insert")
	}
	defer stmt.Close()

	for i, f := range findings {
		if _, err := stmt.Exec(run.ID, i, f.Severity, f.Row, f.SampleID, f.Field, f.Type, f.Message); err != nil {
			return apperrors.E(op, apperrors.KindDatabase, err, "failed to insert finding")
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.E(op, apperrors.KindDatabase, err, "failed to commit run")
	}
	return nil
}

const runColumns = `id, manifest_path, manifest_sha256, mode, run_name, delimiter, status,
	fatal_count, error_count, warning_count, row_count, source, report, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*Run, error) {
	var run Run
	var sha, mode, runName, delim, source, report sql.NullString
	var created string

	err := s.Scan(&run.ID, &run.ManifestPath, &sha, &mode, &runName, &delim, &run.Status,
		&run.FatalCount, &run.ErrorCount, &run.WarningCount, &run.RowCount, &source, &report, &created)
	if err != nil {
		return nil, err
	}

	run.ManifestSHA256 = sha.String
	run.Mode = mode.String
	run.RunName = runName.String
	run.Delimiter = delim.String
	run.Source = source.String
	run.Report = report.String

	run.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, created, err)
	}
	return &run, nil
}

// GetRun returns the run with the given id, or ErrNotFound.
func (db *DB) GetRun(id string) (*Run, error) {
	const op apperrors.Op = "database.GetRun"

	row := db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(op, apperrors.KindValidation, ErrNotFound, id)
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	return run, nil
}

// ListRuns returns runs matching filter, newest first unless filter.OrderBy
// names another column. Rows that fail to scan are skipped and logged.
func (db *DB) ListRuns(filter RunFilter) ([]Run, error) {
	const op apperrors.Op = "database.ListRuns"

	orderBy := "created_at"
	if filter.OrderBy != "" {
		col, err := SafeColumnName(filter.OrderBy)
		if err != nil {
			return nil, apperrors.E(op, apperrors.KindValidation, err)
		}
		orderBy = col
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	var where []string
	var args []interface{}
	if filter.MinStatus > 0 {
		where = append(where, "status >= ?")
		args = append(args, filter.MinStatus)
	}
	if filter.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, filter.Mode)
	}
	if filter.RunName != "" {
		where = append(where, "run_name = ?")
		args = append(args, filter.RunName)
	}
	if filter.Manifest != "" {
		where = append(where, "manifest_path LIKE ?")
		args = append(args, "%"+filter.Manifest+"%")
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// #nosec G202 - orderBy is checked against AllowedColumns
	query += fmt.Sprintf(" ORDER BY %s %s", orderBy, direction)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	defer rows.Close()

	scanner := apperrors.NewRowScanner(string(op))
	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			scanner.RecordSkip(err, "runs")
			continue
		}
		scanner.RecordScan()
		runs = append(runs, *run)
	}
	scanner.Report(db.logger)

	if err := rows.Err(); err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	return runs, nil
}

// FindingsForRun returns the findings of a run in the order they were
// recorded.
func (db *DB) FindingsForRun(runID string) ([]Finding, error) {
	const op apperrors.Op = "database.FindingsForRun"

	rows, err := db.Query(`
		SELECT run_id, seq, severity, row_number, sample_id, field, type, message
		FROM findings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	defer rows.Close()

	scanner := apperrors.NewRowScanner(string(op))
	findings := []Finding{}
	for rows.Next() {
		var f Finding
		var sampleID, field, typ sql.NullString
		if err := rows.Scan(&f.RunID, &f.Seq, &f.Severity, &f.Row, &sampleID, &field, &typ, &f.Message); err != nil {
			scanner.RecordSkip(err, runID)
			continue
		}
		scanner.RecordScan()
		f.SampleID, f.Field, f.Type = sampleID.String, field.String, typ.String
		findings = append(findings, f)
	}
	scanner.Report(db.logger)

	if err := rows.Err(); err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	return findings, nil
}

// DeleteRun removes a run and its findings.
func (db *DB) DeleteRun(id string) error {
	const op apperrors.Op = "database.DeleteRun"

	res, err := db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return apperrors.E(op, apperrors.KindDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.E(op, apperrors.KindValidation, ErrNotFound, id)
	}
	return nil
}

// CountTable counts rows in a table.
// The table name is validated against the AllowedTables whitelist
// to prevent SQL injection attacks.
func (db *DB) CountTable(table string) (int64, error) {
	safeTable, err := SafeTableName(table)
	if err != nil {
		return 0, fmt.Errorf("CountTable: %w", err)
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", safeTable)
	err = db.QueryRow(query).Scan(&count)
	return count, err
}

// GetStats summarizes the history.
func (db *DB) GetStats() (*Stats, error) {
	const op apperrors.Op = "database.GetStats"

	stats := &Stats{ByStatus: map[int]int64{}}
	var err error
	if stats.Runs, err = db.CountTable("runs"); err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	if stats.Findings, err = db.CountTable("findings"); err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}

	rows, err := db.Query("SELECT status, COUNT(*) FROM runs GROUP BY status")
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	defer rows.Close()
	for rows.Next() {
		var status int
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.E(op, apperrors.KindDatabase, err)
		}
		stats.ByStatus[status] = n
	}

	if db.path != "" {
		if st, err := os.Stat(db.path); err == nil {
			stats.Size = st.Size()
		}
	}
	return stats, rows.Err()
}

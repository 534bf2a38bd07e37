package database

import (
	"time"
)

// Run is one recorded validation of a manifest.
type Run struct {
	ID             string    `json:"id"`
	ManifestPath   string    `json:"manifest_path"`
	ManifestSHA256 string    `json:"manifest_sha256,omitempty"`
	Mode           string    `json:"mode,omitempty"`
	RunName        string    `json:"run_name,omitempty"`
	Delimiter      string    `json:"delimiter,omitempty"`
	Status         int       `json:"status"`
	FatalCount     int       `json:"fatal_count"`
	ErrorCount     int       `json:"error_count"`
	WarningCount   int       `json:"warning_count"`
	RowCount       int       `json:"row_count"`
	Source         string    `json:"source,omitempty"` // cli | api
	Report         string    `json:"report,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Finding is a stored validation finding. Seq preserves discovery order
// within a run, most severe bucket first.
type Finding struct {
	RunID    string `json:"run_id"`
	Seq      int    `json:"seq"`
	Severity string `json:"severity"`
	Row      int    `json:"row"`
	SampleID string `json:"sample_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Type     string `json:"type,omitempty"`
	Message  string `json:"message"`
}

// RunFilter selects runs in ListRuns. Zero values do not filter.
type RunFilter struct {
	MinStatus int
	Mode      string
	RunName   string
	Manifest  string // substring of the manifest path
	Since     time.Time
	OrderBy   string // a column in AllowedColumns
	Ascending bool
	Limit     int // defaults to 50
	Offset    int
}

// Stats summarizes the history database.
type Stats struct {
	Runs     int64         `json:"runs"`
	Findings int64         `json:"findings"`
	ByStatus map[int]int64 `json:"by_status"`
	Size     int64         `json:"size_bytes"`
}

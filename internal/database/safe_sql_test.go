package database

import (
	"errors"
	"testing"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"valid runs", "runs", false},
		{"valid findings", "findings", false},
		{"invalid table", "invalid_table", true},
		{"SQL injection attempt", "runs; DROP TABLE runs;--", true},
		{"empty string", "", true},
		{"table with spaces", "table name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.table)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTableName(%q) error = %v, wantErr %v", tt.table, err, tt.wantErr)
			}
			if tt.wantErr && err != nil {
				if !errors.Is(err, ErrInvalidTableName) {
					t.Errorf("expected ErrInvalidTableName, got %v", err)
				}
			}
		})
	}
}

func TestValidateColumnName(t *testing.T) {
	tests := []struct {
		name    string
		column  string
		wantErr bool
	}{
		{"valid created_at", "created_at", false},
		{"valid status", "status", false},
		{"valid run_name", "run_name", false},
		{"unlisted column", "report", true},
		{"SQL injection attempt", "status; DROP TABLE runs;--", true},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumnName(tt.column)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColumnName(%q) error = %v, wantErr %v", tt.column, err, tt.wantErr)
			}
			if tt.wantErr && err != nil && !errors.Is(err, ErrInvalidColumnName) {
				t.Errorf("expected ErrInvalidColumnName, got %v", err)
			}
		})
	}
}

func TestSafeNames(t *testing.T) {
	if name, err := SafeTableName("runs"); err != nil || name != "runs" {
		t.Errorf("SafeTableName(runs) = %q, %v", name, err)
	}
	if _, err := SafeTableName("studies"); err == nil {
		t.Error("expected error for unknown table")
	}
	if name, err := SafeColumnName("status"); err != nil || name != "status" {
		t.Errorf("SafeColumnName(status) = %q, %v", name, err)
	}
}

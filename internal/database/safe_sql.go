package database

import (
	"fmt"
	"regexp"
)

// AllowedTables is the whitelist of valid table names in the history
// database. Any table name not in this list will be rejected to prevent
// SQL injection.
var AllowedTables = map[string]bool{
	"runs":     true,
	"findings": true,
}

// AllowedColumns is the whitelist of run columns that may be used for
// dynamic ordering.
var AllowedColumns = map[string]bool{
	"created_at":    true,
	"status":        true,
	"mode":          true,
	"run_name":      true,
	"manifest_path": true,
	"row_count":     true,
	"fatal_count":   true,
	"error_count":   true,
	"warning_count": true,
}

// ErrInvalidTableName is returned when a table name is not in the whitelist.
var ErrInvalidTableName = fmt.Errorf("invalid table name")

// ErrInvalidColumnName is returned when a column name is not in the whitelist.
var ErrInvalidColumnName = fmt.Errorf("invalid column name")

// validIdentifierPattern matches valid SQL identifiers (alphanumeric and underscore).
var validIdentifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateTableName checks if a table name is in the allowed list.
func ValidateTableName(table string) error {
	if !AllowedTables[table] {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	return nil
}

// ValidateColumnName checks if a column name is in the allowed list.
func ValidateColumnName(column string) error {
	if !validIdentifierPattern.MatchString(column) || !AllowedColumns[column] {
		return fmt.Errorf("%w: %q", ErrInvalidColumnName, column)
	}
	return nil
}

// SafeTableName returns the table name if valid, otherwise returns an error.
// Use this when you need the table name for SQL construction.
func SafeTableName(table string) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	return table, nil
}

// SafeColumnName returns the column name if valid, otherwise returns an error.
// Use this when you need the column name for SQL construction.
func SafeColumnName(column string) (string, error) {
	if err := ValidateColumnName(column); err != nil {
		return "", err
	}
	return column, nil
}

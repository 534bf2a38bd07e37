// Package testutil provides testing utilities for epibac packages.
// It includes helpers for temporary files, FASTQ and manifest fixtures,
// fixed clocks and observed loggers.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TempFile creates a file with the given content in a fresh temporary
// directory and returns its path. The directory is removed when the test
// ends.
func TempFile(t *testing.T, name, content string) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), name, content)
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// AssertContains fails the test if substr is not in s.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: %q does not contain %q", msg, s, substr)
	}
}

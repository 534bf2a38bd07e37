package testutil

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// FixedClock returns a clock that always reports the given day at noon UTC.
func FixedClock(t *testing.T, day string) func() time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("invalid clock day %q: %v", day, err)
	}
	now := d.Add(12 * time.Hour)
	return func() time.Time { return now }
}

// ObservedLogger returns a logger that records entries at or above level.
func ObservedLogger(level zapcore.LevelEnabler) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

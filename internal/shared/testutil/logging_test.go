package testutil

import (
	"log/slog"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Info("snapshot saved", slog.String("name", "q1 refresh"))
	logger.Error("estimate failed", slog.Int("status", 422))

	if handler.Count() != 2 {
		t.Fatalf("expected 2 records, got %d", handler.Count())
	}
	if !handler.ContainsMessage("snapshot saved") {
		t.Error("expected to find 'snapshot saved'")
	}

	records := handler.Records()
	if records[0].Attrs["name"] != "q1 refresh" {
		t.Errorf("unexpected attrs: %v", records[0].Attrs)
	}
	if records[1].Level != slog.LevelError {
		t.Errorf("expected error level, got %v", records[1].Level)
	}
}

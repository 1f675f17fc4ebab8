package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTuning(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}
	return path
}

func TestLoadTuningEmptyPath(t *testing.T) {
	tuning, err := LoadTuning("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tuning != (Tuning{}) {
		t.Fatalf("empty path should yield zero tuning, got %+v", tuning)
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file should be an error")
	}
}

func TestLoadTuningValues(t *testing.T) {
	path := writeTuning(t, "history_capacity: 250\nstream_buffer: 64\nheartbeat: 10s\ndefault_history_limit: 8\n")
	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tuning.HistoryCapacity != 250 || tuning.StreamBuffer != 64 {
		t.Fatalf("unexpected tuning: %+v", tuning)
	}
	if tuning.Heartbeat.Std() != 10*time.Second {
		t.Fatalf("heartbeat = %v, want 10s", tuning.Heartbeat)
	}
	if tuning.DefaultHistoryLimit != 8 {
		t.Fatalf("default_history_limit = %d, want 8", tuning.DefaultHistoryLimit)
	}
}

func TestLoadTuningRejectsNegatives(t *testing.T) {
	path := writeTuning(t, "history_capacity: -1\n")
	if _, err := LoadTuning(path); err == nil {
		t.Fatalf("negative capacity should be rejected")
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Close()
		loggerMu.Lock()
		defaultLogger = nil
		loggerMu.Unlock()
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestInitWriter_JSON(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	if err := InitWriter(Config{Level: "info", JSON: true}, &buf); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}

	Debug("hidden")
	Info("autosave failed", "key", "appData")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "autosave failed" {
		t.Errorf("expected msg 'autosave failed', got %v", entry["msg"])
	}
	if entry["key"] != "appData" {
		t.Errorf("expected key attribute, got %v", entry["key"])
	}
}

func TestInitWriter_File(t *testing.T) {
	resetLogger(t)

	path := filepath.Join(t.TempDir(), "logs", "pm.log")
	var console bytes.Buffer
	if err := InitWriter(Config{Level: "debug", File: path}, &console); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}

	With("component", "test").Warn("feed unreachable")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "feed unreachable") {
		t.Errorf("expected message in log file, got %q", data)
	}
	if !strings.Contains(console.String(), "component=test") {
		t.Errorf("expected attribute on console, got %q", console.String())
	}
}

func TestInitWriter_InvalidLevel(t *testing.T) {
	resetLogger(t)

	if err := InitWriter(Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

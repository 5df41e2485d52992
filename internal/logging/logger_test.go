package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlanghorne/ghactions/internal/config"
)

func TestLoggerAppendsTimestampedLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Printf("lint run: %d findings\n", 3)
	logger.Printf("bridge: listening on %s", "127.0.0.1:8320")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, config.DotDir, "logs", "ghactions.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "[") || !strings.Contains(lines[0], "lint run: 3 findings") {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Printf("ignored")
	if err := logger.Close(); err != nil {
		t.Fatalf("nil close should be nil: %v", err)
	}
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/logtail"
)

func TestNew_FileWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recast.log")
	logger, closer, err := New(Options{File: path, Level: zerolog.InfoLevel})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sessionLogger := logger.With().Str("component", "session").Logger()
	sessionLogger.Info().Str("user_id", "u1").Msg("signed in")
	logger.Debug().Msg("filtered out")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := logtail.Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %#v, want 1", entries)
	}
	e := entries[0]
	if e.Level != "info" || e.Component != "session" || e.Message != "signed in" || e.Fields["user_id"] != "u1" || e.Time.IsZero() {
		t.Fatalf("entry = %#v", e)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Console: &buf, Level: zerolog.DebugLevel})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug().Msg("hello console")
	if !strings.Contains(buf.String(), "hello console") {
		t.Fatalf("console output = %q", buf.String())
	}
}

func TestNew_NoSinksDiscards(t *testing.T) {
	logger, closer, err := New(Options{})
	if err != nil || closer == nil {
		t.Fatalf("New = %v, %v", closer, err)
	}
	logger.Error().Msg("dropped")
}

func TestNew_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := New(Options{File: filepath.Join(blocker, "recast.log")}); err == nil {
		t.Fatalf("New returned nil error for a file used as directory")
	}
}

package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
		{"read one", 1, expectedAll[9:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", lines, err)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"warn","component":"poller","error":"dial tcp: connection refused","page":2,"time":"2025-05-01T09:00:00Z","message":"job list fetch failed"}`
	e := Parse(line)
	if e.Level != "warn" || e.Component != "poller" || e.Message != "job list fetch failed" {
		t.Fatalf("Parse = %#v", e)
	}
	if !e.Time.Equal(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("Time = %v", e.Time)
	}
	if e.Fields["page"] != "2" || e.Fields["error"] != "dial tcp: connection refused" {
		t.Fatalf("Fields = %v", e.Fields)
	}

	rendered := e.String()
	for _, want := range []string{"WARN", "[poller]", "job list fetch failed", "error=dial tcp", "page=2"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("String() = %q, missing %q", rendered, want)
		}
	}
	if strings.Index(rendered, "error=") > strings.Index(rendered, "page=") {
		t.Fatalf("fields not sorted: %q", rendered)
	}
}

func TestParse_PlainText(t *testing.T) {
	e := Parse("panic: something odd")
	if e.Message != "panic: something odd" || e.String() != "panic: something odd" {
		t.Fatalf("Parse(plain) = %#v", e)
	}
}

func TestTail_SkipsBlankLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "recast.log")
	content := `{"level":"info","message":"one"}` + "\n\n" + `{"level":"info","message":"two"}` + "\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := Tail(logPath, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 2 || entries[0].Message != "one" || entries[1].Message != "two" {
		t.Fatalf("Tail = %#v", entries)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// isolate points HOME and DotenvPath at temp locations and blanks the
// RECAST_* variables so the developer's environment cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"RECAST_API_URL", "RECAST_LOG_DIR", "RECAST_DATA_DIR", "RECAST_DOWNLOAD_DIR", "RECAST_POLL_SECONDS", "RECAST_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	orig := DotenvPath
	DotenvPath = filepath.Join(t.TempDir(), ".env")
	t.Cleanup(func() { DotenvPath = orig })
	return home
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}

	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if cfg.LogPath() != filepath.Join(wantLogDir, "recast.log") {
		t.Fatalf("LogPath = %q", cfg.LogPath())
	}
	if cfg.SessionDBPath() != filepath.Join(home, ".local/share/recast/session.db") {
		t.Fatalf("SessionDBPath = %q", cfg.SessionDBPath())
	}
	if cfg.DownloadDir != filepath.Join(home, "Downloads") {
		t.Fatalf("DownloadDir = %q", cfg.DownloadDir)
	}
	if cfg.PollInterval != 10*time.Second || cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("durations = %v %v", cfg.PollInterval, cfg.RequestTimeout)
	}
	if cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://recast.example.com/api/v1/  "
log_dir = "  ~/.recast/logs  "
download_dir = "/srv/exports"
poll_seconds = 3
request_timeout_seconds = 5
log_level = "DEBUG"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://recast.example.com/api/v1" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if cfg.DownloadDir != "/srv/exports" {
		t.Fatalf("DownloadDir = %q", cfg.DownloadDir)
	}
	if cfg.PollInterval != 3*time.Second || cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("durations = %v %v", cfg.PollInterval, cfg.RequestTimeout)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "   "
log_dir = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	wantLogDir, _ := expandPath(defaultLogDir)
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "http://file:1/api/v1"
poll_seconds = 20
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(DotenvPath, []byte("RECAST_API_URL=http://dotenv:2/api/v1\nRECAST_POLL_SECONDS=7\nRECAST_LOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile .env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://dotenv:2/api/v1" || cfg.PollInterval != 7*time.Second || cfg.LogLevel != zerolog.WarnLevel {
		t.Fatalf("cfg = %#v, want .env overrides", cfg)
	}

	t.Setenv("RECAST_API_URL", "http://env:3/api/v1")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://env:3/api/v1" {
		t.Fatalf("APIURL = %q, want process env to win", cfg.APIURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  string
	}{
		{"malformed toml", "api_url = [", ""},
		{"negative poll", "poll_seconds = -1", ""},
		{"negative timeout", "request_timeout_seconds = -5", ""},
		{"bad level", `log_level = "loud"`, ""},
		{"bad poll env", "", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.env != "" {
				t.Setenv("RECAST_POLL_SECONDS", tt.env)
			}
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.toml), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("Load returned nil error")
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/foo/bar")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "foo/bar") {
		t.Fatalf("expandPath = %q", got)
	}
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath(empty) returned nil error")
	}
}

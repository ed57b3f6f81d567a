// Package prefs handles recast user preferences persistence.
// Preferences are stored in ~/.config/recast/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/recast/internal/api"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme        string `toml:"theme"`
	PageLimit    int    `toml:"page_limit"`
	StatusFilter string `toml:"status_filter"`
}

const (
	defaultPrefsPath = "~/.config/recast/prefs.toml"
	defaultTheme     = "Dracula"
)

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, PageLimit: api.DefaultPageLimit}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Status returns the stored filter as a job status, empty for all jobs.
func (p Prefs) Status() api.JobStatus {
	return api.JobStatus(p.StatusFilter)
}

// Query returns the initial job list query these preferences describe.
func (p Prefs) Query() api.JobQuery {
	return api.JobQuery{Page: 1, Limit: p.PageLimit, Status: p.Status()}.Normalized()
}

func (p Prefs) normalized() Prefs {
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	if p.PageLimit < 1 || p.PageLimit > api.MaxPageLimit {
		p.PageLimit = api.DefaultPageLimit
	}
	p.StatusFilter = strings.ToLower(strings.TrimSpace(p.StatusFilter))
	if p.StatusFilter != "" && !api.JobStatus(p.StatusFilter).Valid() {
		p.StatusFilter = ""
	}
	return p
}

// Load reads preferences from the given path, falling back to defaults if
// missing or unreadable.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults(), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Defaults(), nil // Graceful degradation
	}

	var prefs Prefs
	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Defaults(), nil // Graceful degradation
	}
	return prefs.normalized(), nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

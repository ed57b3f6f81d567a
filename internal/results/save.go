package results

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
)

// Save writes text to dir/name, creating dir as needed, and returns the path.
// Empty text still produces a file.
func Save(dir, name, text string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("save export: invalid file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

var writeClipboard = clipboard.WriteAll

// CopyText puts text on the system clipboard.
func CopyText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("copy to clipboard: no clipboard utility available")
	}
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

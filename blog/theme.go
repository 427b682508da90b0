package blog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	customThemeFile = "custom-theme.css"
	// MaxThemeSize bounds an uploaded stylesheet.
	MaxThemeSize = 1_000_000
)

//go:embed theme/default.css
var defaultTheme string

// ThemeStore keeps the custom stylesheet as a file under dir.
type ThemeStore struct {
	dir string
}

func NewThemeStore(dir string) *ThemeStore {
	return &ThemeStore{dir: dir}
}

func (t *ThemeStore) path() string {
	return filepath.Join(t.dir, customThemeFile)
}

// Load returns the custom stylesheet, or the built-in default when none
// has been saved.
func (t *ThemeStore) Load() (string, error) {
	data, err := os.ReadFile(t.path())
	if errors.Is(err, fs.ErrNotExist) {
		return defaultTheme, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading theme: %w", err)
	}
	return string(data), nil
}

// Save replaces the custom stylesheet. The file is written to a temporary
// name and renamed so readers never see a partial theme.
func (t *ThemeStore) Save(css string) error {
	if css == "" {
		return invalid("css", "CSS content is required")
	}
	if len(css) > MaxThemeSize {
		return invalid("css", "CSS file is too large (max 1MB)")
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("creating theme dir: %w", err)
	}
	tmp, err := os.CreateTemp(t.dir, customThemeFile+".*")
	if err != nil {
		return fmt.Errorf("creating temp theme: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(css); err != nil {
		tmp.Close()
		return fmt.Errorf("writing theme: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing theme: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.path())
}

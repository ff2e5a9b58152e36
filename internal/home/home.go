package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the wikibook home directory.
	DefaultDirName = ".wikibook"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// SessionFileName holds the persisted sign-in token and user profile.
	SessionFileName = "session.json"

	// BooksDirName is where downloaded books are saved.
	BooksDirName = "books"

	// PreviewsDirName is where locally rendered previews are written.
	PreviewsDirName = "previews"

	// SwaggerFileName is an optional copy of the generated OpenAPI document.
	SwaggerFileName = "swagger.json"
)

// Dir represents the wikibook home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.wikibook).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SessionPath returns the path to the session file.
func (d *Dir) SessionPath() string {
	return filepath.Join(d.path, SessionFileName)
}

// BooksDir returns the download directory for generated books.
func (d *Dir) BooksDir() string {
	return filepath.Join(d.path, BooksDirName)
}

// PreviewsDir returns the directory for local previews.
func (d *Dir) PreviewsDir() string {
	return filepath.Join(d.path, PreviewsDirName)
}

// SwaggerPath returns where the server looks for the OpenAPI document
// before falling back to docs/swagger.
func (d *Dir) SwaggerPath() string {
	return filepath.Join(d.path, SwaggerFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.BooksDir(), d.PreviewsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrOutsideImportDir is returned for paths that leave the import directory.
var ErrOutsideImportDir = errors.New("path is outside the import directory")

// ResolveImportPath maps name, absolute or relative to dir, to a regular file
// inside dir. Paths that escape dir, including through symlinks, are rejected.
// A missing file yields an error matching fs.ErrNotExist.
func ResolveImportPath(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: no import directory configured", ErrOutsideImportDir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	rel := name
	if filepath.IsAbs(name) {
		if rel, err = filepath.Rel(dir, name); err != nil {
			return "", fmt.Errorf("%w: %s", ErrOutsideImportDir, name)
		}
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideImportDir, name)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return "", fmt.Errorf("opening import directory: %w", err)
	}
	defer root.Close()

	info, err := root.Stat(rel)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", err
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrOutsideImportDir, err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("%s is not a regular file", name)
	}
	return filepath.Join(dir, rel), nil
}

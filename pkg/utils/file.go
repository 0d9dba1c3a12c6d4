package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotDirectory is returned when a destination exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// ResolveDestinationPath checks that destDir can hold a received file. An
// existing directory is used as is; a missing one is accepted when its parent
// exists, and created when the file is saved.
func ResolveDestinationPath(destDir string) (string, error) {
	info, err := os.Stat(destDir)
	switch {
	case err == nil && info.IsDir():
		return destDir, nil
	case err == nil:
		return "", fmt.Errorf("destination path '%s' exists but is %w", destDir, ErrNotDirectory)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("cannot access destination path: %w", err)
	}

	parent := filepath.Dir(destDir)
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return "", fmt.Errorf("parent directory does not exist: %s", parent)
	}
	return destDir, nil
}

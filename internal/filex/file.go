// Package filex holds file system helpers for the vault data directory.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DirPerm  os.FileMode = 0o700
	FilePerm os.FileMode = 0o600
)

// EnsureDir creates dir (and parents) owner-only and returns its absolute
// path. Relative paths resolve against the working directory and a leading
// "~/" against the home directory.
func EnsureDir(dir string) (string, error) {
	abs, err := ExpandPath(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, DirPerm); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// EnsureFile creates path with owner-only permissions when it is missing and
// tightens the mode of an existing file.
func EnsureFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FilePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return Restrict(path)
}

// Restrict sets owner-only permissions on each existing path.
func Restrict(paths ...string) error {
	for _, p := range paths {
		if err := os.Chmod(p, FilePerm); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("chmod %s: %w", p, err)
		}
	}
	return nil
}

// ExpandPath resolves "~/" and makes the path absolute.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", errors.New("empty path")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", p, err)
	}
	return abs, nil
}

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/filex"
)

// Sink stores backup archives by name.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
	// Read returns common.ErrorNotFound for an unknown name.
	Read(ctx context.Context, name string) ([]byte, error)
	// List returns the stored backup names, sorted.
	List(ctx context.Context) ([]string, error)
}

// FileSink keeps archives as files in a local directory.
type FileSink struct {
	Dir string
}

func (s FileSink) Write(_ context.Context, name string, data []byte) error {
	dir, err := filex.EnsureDir(s.Dir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, filepath.Base(name))

	tmp, err := os.CreateTemp(dir, ".backup-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), filex.FilePerm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s FileSink) Read(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.ErrorNotFound
	}
	return b, err
}

func (s FileSink) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

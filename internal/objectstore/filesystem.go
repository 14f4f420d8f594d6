package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore implements Store rooted at a local directory. Grounded on
// the source's local-filesystem driver (object_store::local::LocalFileSystem),
// reimplemented directly over os/io-fs since no third-party local-fs driver
// in the retrieval pack offers anything beyond what the standard library
// already provides for this narrow a surface.
type FilesystemStore struct {
	root string
}

var _ Store = (*FilesystemStore)(nil)

// NewFilesystemStore creates the root directory if missing and returns a
// store rooted there.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) URLSchema() *url.URL {
	return &url.URL{Scheme: "file", Path: s.root}
}

func (s *FilesystemStore) fullPath(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *FilesystemStore) ReadBytes(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *FilesystemStore) WriteBytes(_ context.Context, path string, data []byte) error {
	full := s.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FilesystemStore) List(_ context.Context, prefix, extension string) ([]string, error) {
	root := s.fullPath(prefix)
	var out []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if extension != "" {
			ext := strings.TrimPrefix(filepath.Ext(p), ".")
			if ext != extension {
				return nil
			}
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return out, nil
}

func (s *FilesystemStore) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(s.fullPath(path))
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

func (s *FilesystemStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(s.fullPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *FilesystemStore) DeleteRecursive(_ context.Context, prefix string) error {
	if err := os.RemoveAll(s.fullPath(prefix)); err != nil {
		return fmt.Errorf("delete recursive %s: %w", prefix, err)
	}
	return nil
}

package storageiface

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roasbeef/quiver/internal/quivererr"
)

// LocalStorage implements Storage over a directory on the local filesystem.
// It is the reference Storage used by tests and by a single-node
// deployment that has no object-storage backend configured.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a LocalStorage rooted at dir, which is created if
// it doesn't already exist.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &quivererr.StorageError{Path: dir, Err: err}
	}
	return &LocalStorage{root: dir}, nil
}

func (s *LocalStorage) resolve(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Get implements Storage.
func (s *LocalStorage) Get(ctx context.Context, path string, r ByteRange) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := s.resolve(path)
	f, err := os.Open(full)
	if err != nil {
		return nil, &quivererr.StorageError{Path: path, Err: err}
	}
	defer f.Close()

	if r.IsWhole() {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, &quivererr.StorageError{Path: path, Err: err}
		}
		return data, nil
	}

	if _, err := f.Seek(int64(r.Start), io.SeekStart); err != nil {
		return nil, &quivererr.StorageError{Path: path, Err: err}
	}

	buf := make([]byte, r.Length)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, &quivererr.StorageError{Path: path, Err: err}
	}

	return buf[:n], nil
}

// Put implements Storage.
func (s *LocalStorage) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &quivererr.StorageError{Path: path, Err: err}
	}

	if err := os.WriteFile(full, data, 0o644); err != nil {
		return &quivererr.StorageError{Path: path, Err: err}
	}

	return nil
}

// Delete implements Storage. Deleting a missing path is not an error.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full := s.resolve(path)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return &quivererr.StorageError{Path: path, Err: err}
	}

	return nil
}

// ListPrefix implements Storage.
func (s *LocalStorage) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := s.resolve(prefix)
	var out []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasPrefix(path, base) {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &quivererr.StorageError{Path: prefix, Err: err}
	}

	return out, nil
}

// WithPrefix implements Storage.
func (s *LocalStorage) WithPrefix(prefix string) Storage {
	return &LocalStorage{root: s.resolve(prefix)}
}

var _ Storage = (*LocalStorage)(nil)

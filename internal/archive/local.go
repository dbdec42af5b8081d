package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on the local filesystem. Writes go through
// a temp file and rename so a crash never leaves a partial document.
type LocalStore struct {
	basePath string
	fileMode os.FileMode
	dirMode  os.FileMode
}

// NewLocalStore creates a LocalStore rooted at basePath
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("archive base path cannot be empty")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &LocalStore{
		basePath: absPath,
		fileMode: 0644,
		dirMode:  0755,
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.validateKey(key); err != nil {
		return NewArchiveError("Put", key, err, false)
	}
	if err := ctx.Err(); err != nil {
		return NewArchiveError("Put", key, err, false)
	}

	fullPath := s.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), s.dirMode); err != nil {
		return NewArchiveError("Put", key, err, true)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, data, s.fileMode); err != nil {
		return NewArchiveError("Put", key, err, true)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return NewArchiveError("Put", key, err, true)
	}

	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.validateKey(key); err != nil {
		return nil, NewArchiveError("Get", key, err, false)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewArchiveError("Get", key, err, false)
	}

	data, err := os.ReadFile(s.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewArchiveError("Get", key, ErrDocumentNotFound, false)
		}
		return nil, NewArchiveError("Get", key, err, true)
	}

	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.validateKey(key); err != nil {
		return false, NewArchiveError("Exists", key, err, false)
	}

	_, err := os.Stat(s.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, NewArchiveError("Exists", key, err, true)
	}

	return true, nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" {
		if err := s.validateKey(prefix); err != nil {
			return nil, NewArchiveError("List", prefix, err, false)
		}
	}

	var keys []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, NewArchiveError("List", prefix, err, true)
	}

	return keys, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := s.validateKey(key); err != nil {
		return NewArchiveError("Delete", key, err, false)
	}

	if err := os.Remove(s.keyToPath(key)); err != nil {
		if os.IsNotExist(err) {
			return NewArchiveError("Delete", key, ErrDocumentNotFound, false)
		}
		return NewArchiveError("Delete", key, err, true)
	}

	return nil
}

// validateKey rejects keys that would escape the archive root
func (s *LocalStore) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: key must be relative", ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: key must not contain path traversal", ErrInvalidKey)
	}
	if strings.ContainsRune(key, '\x00') {
		return fmt.Errorf("%w: key contains null byte", ErrInvalidKey)
	}
	return nil
}

func (s *LocalStore) keyToPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

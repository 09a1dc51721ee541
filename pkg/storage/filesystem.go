package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidKey is returned for keys that escape the base directory.
var ErrInvalidKey = errors.New("storage: invalid key")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// LocalStorage keeps files under a base directory. Writes land in a temp
// file first and are renamed into place, so readers never see a partial
// upload or export.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage: base directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", abs, err)
	}
	return &LocalStorage{root: abs}, nil
}

// Save writes data under key.
func (s *LocalStorage) Save(key string, data []byte) (string, error) {
	return s.SaveStream(key, bytes.NewReader(data))
}

// SaveStream copies r into key, replacing any existing file.
func (s *LocalStorage) SaveStream(key string, r io.Reader) (string, error) {
	target, err := s.path(key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("storage: prepare %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: stage %s: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return "", fmt.Errorf("storage: chmod %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: flush %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("storage: commit %s: %w", key, err)
	}
	committed = true
	return key, nil
}

// Open returns a read-only handle. A missing file wraps fs.ErrNotExist.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes key. Deleting a missing file is not an error.
func (s *LocalStorage) Delete(key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// CleanupOlderThan removes regular files last modified more than ttl ago and
// returns their keys. Staged temp files are swept too.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var removed []string
	walkErr := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if rel, err := filepath.Rel(s.root, p); err == nil {
			removed = append(removed, filepath.ToSlash(rel))
		}
		return nil
	})
	if walkErr != nil {
		return removed, fmt.Errorf("storage: cleanup: %w", walkErr)
	}
	if removed == nil {
		removed = []string{}
	}
	return removed, nil
}

// path maps a slash-separated key onto the filesystem. Keys must stay
// inside root.
func (s *LocalStorage) path(key string) (string, error) {
	local := filepath.FromSlash(key)
	if !filepath.IsLocal(local) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, local), nil
}

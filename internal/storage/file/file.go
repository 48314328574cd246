package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists each key as one JSON document inside a root directory.
// It is the on-device analog of browser local storage: absence of a key's
// file is a valid "nothing persisted yet" state, distinct from a file
// holding an empty collection.
type Store struct {
	dir   string
	quota int64
}

// New creates the root directory if needed. quota is the advisory byte
// budget for Usage reporting; zero means unlimited.
func New(dir string, quota int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &Store{dir: dir, quota: quota}, nil
}

func (s *Store) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, key)

	return filepath.Join(s.dir, safe+".json")
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("reading %q: %w", key, err)
	}

	return value, true, nil
}

// Put writes through a temp file and renames it so a crash mid-write never
// leaves a truncated document behind.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	path := s.path(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %q: %w", key, err)
	}

	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %q: %w", key, err)
	}

	return nil
}

// Usage reports the total size of all stored documents against the
// configured quota. A zero quota disables accounting.
func (s *Store) Usage(_ context.Context) (used, quota int64, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading storage directory: %w", err)
	}

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		used += info.Size()
	}

	return used, s.quota, nil
}

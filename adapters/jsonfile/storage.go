package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the key/value map to a single JSON file on local disk, the
// way a browser keeps localStorage. Every write rewrites the file atomically.
// Write failures are logged and swallowed; the in-memory copy stays current.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	// in-memory cache for speed
	data map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed I/O errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New opens the store at path. A missing file is an empty store; an
// unreadable or malformed file is an error.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: slog.Default(), data: map[string]string{}}
	for _, o := range opts {
		o(s)
	}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open achievement store %s: %w", path, err)
		}
	}
	return s, nil
}

// DefaultPath returns the per-user location of the local store.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "achievekit", "achievements.json"), nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	var data map[string]string
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	// a literal null decodes to a nil map
	if data != nil {
		s.data = data
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.data[key]
	s.data[key] = value
	if err := s.persist(); err != nil {
		// roll back so memory matches what is on disk
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		s.logger.Error("achievement store write failed", "path", s.path, "key", key, "error", err)
	}
}

func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.data[key]
	if !existed {
		return
	}
	delete(s.data, key)
	if err := s.persist(); err != nil {
		s.data[key] = prev
		s.logger.Error("achievement store remove failed", "path", s.path, "key", key, "error", err)
	}
}

// Package storage provides key/value persistence for the local snapshot and
// the session.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been set or was
// removed.
var ErrNotFound = errors.New("key not found")

// Backend is a durable string key/value store. Every Set is a full replace of
// the value stored under key.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Keys(prefix string) ([]string, error)
}

// Kind selects a Backend implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindBadger Kind = "badger"
	KindMemory Kind = "memory"
)

// Config selects and configures a Backend.
type Config struct {
	Kind   Kind
	Path   string
	Logger *slog.Logger
}

// Open builds the backend described by cfg. The returned close function must
// be called when the backend is no longer needed.
func Open(cfg Config) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Kind {
	case KindMemory:
		return NewMemoryBackend(), noop, nil
	case KindFile, "":
		fb, err := NewFileBackend(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return fb, noop, nil
	case KindBadger:
		bb, err := OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true, Logger: cfg.Logger})
		if err != nil {
			return nil, nil, err
		}
		return bb, bb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Kind)
	}
}

// FileBackend keeps one file per key in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir, creating the directory
// if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("file backend requires a directory")
	}
	// #nosec G301 -- 0755 is appropriate for the state directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory holding the key files.
func (s *FileBackend) Dir() string {
	return s.dir
}

// PathFor returns the file that holds key.
func (s *FileBackend) PathFor(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

// KeyFor maps a file name back to its key. ok is false for files that are not
// key files (temporary files, foreign files).
func KeyFor(name string) (key string, ok bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	key, err := url.PathUnescape(name)
	if err != nil {
		return "", false
	}
	return key, true
}

// Get reads the value stored under key.
func (s *FileBackend) Get(key string) (string, error) {
	// #nosec G304 -- path is derived from an escaped key inside our directory
	data, err := os.ReadFile(s.PathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Set writes value under key. The write goes to a temporary file that is
// renamed into place, so readers never observe a partial value.
func (s *FileBackend) Set(key, value string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.PathFor(key)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *FileBackend) Remove(key string) error {
	err := os.Remove(s.PathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys lists the keys starting with prefix, sorted.
func (s *FileBackend) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := KeyFor(e.Name())
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// MemoryBackend is an in-process Backend for tests and ephemeral runs.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryBackend) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var (
	_ Backend = &FileBackend{}
	_ Backend = &MemoryBackend{}
)

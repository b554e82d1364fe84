// Package snapshot implements the local snapshot store: a durable copy of the
// article and category lists that serves reads and writes while the content
// API is unreachable.
//
// Each list lives under a single key as a serialized array and every write
// replaces the whole array. A missing, malformed or empty array is repaired
// by reseeding it from the bundled dataset; parse failures are never returned
// to callers.
package snapshot

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/seed"
	"github.com/yourusername/articlesync/internal/storage"
)

// Well-known keys in the backend.
const (
	KeyArticles   = "dummyArticles"
	KeyCategories = "dummyCategories"
	KeyDeletedAt  = "articleDeletedAt"
	KeyUpdatedAt  = "articleLastUpdated"
)

// collection describes one persisted array.
type collection[T any] struct {
	key      string
	defaults func() []T
	id       func(T) string
}

var (
	articles = collection[model.Article]{
		key:      KeyArticles,
		defaults: seed.Articles,
		id:       func(a model.Article) string { return a.ID },
	}
	categories = collection[model.Category]{
		key:      KeyCategories,
		defaults: seed.Categories,
		id:       func(c model.Category) string { return c.ID },
	}
)

// Store is the local snapshot. It is safe for concurrent use within one
// process; writers in other processes sharing the same backend race on a
// last-writer-wins basis.
type Store struct {
	backend storage.Backend
	logger  *slog.Logger
	now     func() time.Time

	// mu serializes read-modify-write cycles.
	mu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a store over backend.
func New(backend storage.Backend) *Store {
	return NewWithLogger(backend, slog.Default())
}

// NewWithLogger creates a store over backend with a custom logger.
func NewWithLogger(backend storage.Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With("component", "snapshot.store"),
		now:     time.Now,
		subs:    make(map[int]func(Event)),
	}
}

// WithClock replaces the clock used for timestamps and change markers.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Now returns the store's current time. Records created outside the store
// use it so every timestamp comes from one clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Backend returns the persistence backend the store writes to.
func (s *Store) Backend() storage.Backend {
	return s.backend
}

// EnsureSeeded repairs the article array if it is absent, not an array or
// empty, and reports whether a reseed happened.
func (s *Store) EnsureSeeded() bool {
	s.mu.Lock()
	seeded := ensureSeeded(s, articles)
	s.mu.Unlock()
	if seeded {
		s.publish(Event{Kind: EventReseeded, At: s.now()})
	}
	return seeded
}

// ReadAll returns the persisted articles in insertion order, seeding first.
func (s *Store) ReadAll() []model.Article {
	s.mu.Lock()
	items, seeded := readAll(s, articles)
	s.mu.Unlock()
	if seeded {
		s.publish(Event{Kind: EventReseeded, At: s.now()})
	}
	return items
}

// WriteAll replaces the persisted article array.
func (s *Store) WriteAll(items []model.Article) error {
	s.mu.Lock()
	err := writeAll(s, articles, items)
	s.mu.Unlock()
	if err == nil {
		s.publish(Event{Kind: EventWritten, At: s.now()})
	}
	return err
}

// FindByID looks up a single article.
func (s *Store) FindByID(id string) (model.Article, bool) {
	for _, a := range s.ReadAll() {
		if a.ID == id {
			return a, true
		}
	}
	return model.Article{}, false
}

// Upsert merges patch into the article with the given id, stamps UpdatedAt,
// writes the array back and raises the update signal. It reports false when
// no article matched.
func (s *Store) Upsert(id string, patch model.ArticlePatch) bool {
	s.mu.Lock()
	now := s.now()
	items, _ := readAll(s, articles)
	idx := indexOf(items, articles.id, id)
	if idx == -1 {
		s.mu.Unlock()
		return false
	}
	patch.ApplyTo(&items[idx], now)
	if items[idx].Category == nil {
		s.embedCategoryLocked(&items[idx])
	}
	if err := writeAll(s, articles, items); err != nil {
		s.mu.Unlock()
		return false
	}
	s.setMarkerLocked(KeyUpdatedAt, now)
	s.mu.Unlock()

	s.publish(Event{Kind: EventUpdated, ID: id, At: now})
	return true
}

// Append adds a new article at the end of the array and raises the update
// signal.
func (s *Store) Append(a model.Article) error {
	s.mu.Lock()
	now := s.now()
	items, _ := readAll(s, articles)
	if a.Category == nil {
		s.embedCategoryLocked(&a)
	}
	items = append(items, a)
	if err := writeAll(s, articles, items); err != nil {
		s.mu.Unlock()
		return err
	}
	s.setMarkerLocked(KeyUpdatedAt, now)
	s.mu.Unlock()

	s.publish(Event{Kind: EventCreated, ID: a.ID, At: now})
	return nil
}

// Remove deletes the article with the given id and raises the delete signal.
// It reports false, leaving the store untouched, when nothing was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	now := s.now()
	items, _ := readAll(s, articles)
	kept := make([]model.Article, 0, len(items))
	for _, a := range items {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(items) {
		s.mu.Unlock()
		return false
	}
	if err := writeAll(s, articles, kept); err != nil {
		s.mu.Unlock()
		return false
	}
	s.setMarkerLocked(KeyDeletedAt, now)
	s.mu.Unlock()

	s.publish(Event{Kind: EventDeleted, ID: id, At: now})
	return true
}

// ResetToDefault overwrites both arrays with the bundled dataset regardless
// of their current state.
func (s *Store) ResetToDefault() error {
	s.mu.Lock()
	err := errors.Join(
		writeAll(s, articles, articles.defaults()),
		writeAll(s, categories, categories.defaults()),
	)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(Event{Kind: EventReset, At: s.now()})
	return nil
}

// embedCategoryLocked refreshes the denormalized category copy of a.
func (s *Store) embedCategoryLocked(a *model.Article) {
	cats, _ := readAll(s, categories)
	for _, c := range cats {
		if c.ID == a.CategoryID {
			c := c
			a.Category = &c
			return
		}
	}
}

func (s *Store) setMarkerLocked(key string, at time.Time) {
	if err := s.backend.Set(key, strconv.FormatInt(at.UnixMilli(), 10)); err != nil {
		s.logger.Warn("Failed to write change signal", "key", key, "error", err)
	}
}

// ensureSeeded must be called with s.mu held.
func ensureSeeded[T any](s *Store, c collection[T]) bool {
	raw, err := s.backend.Get(c.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info("Initializing snapshot with default data", "key", c.key)
	case err != nil:
		s.logger.Error("Failed to access snapshot backend", "key", c.key, "error", err)
		return false
	default:
		var items []T
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			s.logger.Warn("Invalid snapshot data, resetting", "key", c.key, "error", err)
		} else if len(items) == 0 {
			s.logger.Warn("Empty snapshot data, resetting", "key", c.key)
		} else {
			return false
		}
	}
	if err := writeAll(s, c, c.defaults()); err != nil {
		return false
	}
	return true
}

// readAll must be called with s.mu held.
func readAll[T any](s *Store, c collection[T]) ([]T, bool) {
	seeded := ensureSeeded(s, c)
	raw, err := s.backend.Get(c.key)
	if err != nil {
		s.logger.Error("Failed to read snapshot, using defaults", "key", c.key, "error", err)
		return c.defaults(), seeded
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Error("Failed to parse snapshot after seeding, using defaults", "key", c.key, "error", err)
		return c.defaults(), seeded
	}
	return items, seeded
}

// writeAll must be called with s.mu held.
func writeAll[T any](s *Store, c collection[T], items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.backend.Set(c.key, string(data)); err != nil {
		s.logger.Error("Failed to write snapshot", "key", c.key, "error", err)
		return err
	}
	return nil
}

func indexOf[T any](items []T, id func(T) string, want string) int {
	for i, it := range items {
		if id(it) == want {
			return i
		}
	}
	return -1
}

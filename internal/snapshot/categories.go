package snapshot

import (
	"github.com/yourusername/articlesync/internal/model"
)

// EnsureCategoriesSeeded repairs the category array the same way
// EnsureSeeded repairs the article array.
func (s *Store) EnsureCategoriesSeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ensureSeeded(s, categories)
}

// Categories returns the persisted categories, seeding first.
func (s *Store) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, _ := readAll(s, categories)
	return items
}

// WriteCategories replaces the persisted category array.
func (s *Store) WriteCategories(items []model.Category) error {
	s.mu.Lock()
	err := writeAll(s, categories, items)
	s.mu.Unlock()
	if err == nil {
		s.publish(Event{Kind: EventCategoriesChanged, At: s.now()})
	}
	return err
}

// FindCategory looks up a single category.
func (s *Store) FindCategory(id string) (model.Category, bool) {
	for _, c := range s.Categories() {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

// AppendCategory adds a category at the end of the array.
func (s *Store) AppendCategory(c model.Category) error {
	s.mu.Lock()
	items, _ := readAll(s, categories)
	err := writeAll(s, categories, append(items, c))
	s.mu.Unlock()
	if err == nil {
		s.publish(Event{Kind: EventCategoriesChanged, ID: c.ID, At: s.now()})
	}
	return err
}

// UpsertCategory merges patch into the matching category. Articles embedding
// the category get their copy refreshed so list views stay consistent.
func (s *Store) UpsertCategory(id string, patch model.CategoryPatch) bool {
	s.mu.Lock()
	now := s.now()
	items, _ := readAll(s, categories)
	idx := indexOf(items, categories.id, id)
	if idx == -1 {
		s.mu.Unlock()
		return false
	}
	patch.ApplyTo(&items[idx], now)
	if err := writeAll(s, categories, items); err != nil {
		s.mu.Unlock()
		return false
	}

	updated := items[idx]
	arts, _ := readAll(s, articles)
	touched := false
	for i := range arts {
		if arts[i].CategoryID == id && arts[i].Category != nil {
			c := updated
			arts[i].Category = &c
			touched = true
		}
	}
	if touched {
		if err := writeAll(s, articles, arts); err == nil {
			s.setMarkerLocked(KeyUpdatedAt, now)
		}
	}
	s.mu.Unlock()

	s.publish(Event{Kind: EventCategoriesChanged, ID: id, At: now})
	return true
}

// RemoveCategory deletes the matching category. Articles that referenced it
// keep their dangling reference.
func (s *Store) RemoveCategory(id string) bool {
	s.mu.Lock()
	items, _ := readAll(s, categories)
	kept := make([]model.Category, 0, len(items))
	for _, c := range items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(items) {
		s.mu.Unlock()
		return false
	}
	err := writeAll(s, categories, kept)
	s.mu.Unlock()
	if err != nil {
		return false
	}
	s.publish(Event{Kind: EventCategoriesChanged, ID: id, At: s.now()})
	return true
}

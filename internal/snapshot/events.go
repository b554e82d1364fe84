package snapshot

import "time"

// EventKind identifies a snapshot mutation.
type EventKind int

const (
	EventReseeded EventKind = iota
	EventWritten
	EventCreated
	EventUpdated
	EventDeleted
	EventReset
	EventCategoriesChanged
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventReseeded:
		return "reseeded"
	case EventWritten:
		return "written"
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventReset:
		return "reset"
	case EventCategoriesChanged:
		return "categories_changed"
	default:
		return "unknown"
	}
}

// Event describes one mutation of the store. ID is empty for whole-array
// events.
type Event struct {
	Kind EventKind
	ID   string
	At   time.Time
}

// Subscribe registers fn to be called after every mutation made through this
// store. Handlers run synchronously on the mutating goroutine and must not
// call back into Subscribe. The returned function unregisters fn.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) publish(e Event) {
	s.subsMu.Lock()
	handlers := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range handlers {
		fn(e)
	}
}

package snapshot

import (
	"errors"
	"strconv"
	"time"

	"github.com/yourusername/articlesync/internal/storage"
)

// Signals are the out-of-band markers written next to the article array to
// tell other readers of the same backend that a refresh is needed.
type Signals struct {
	Deleted   bool
	DeletedAt time.Time
	Updated   bool
	UpdatedAt time.Time
}

// Pending reports whether either marker is set.
func (s Signals) Pending() bool {
	return s.Deleted || s.Updated
}

// Signals reads both markers. A marker with an unreadable timestamp still
// counts as set.
func (s *Store) Signals() (Signals, error) {
	var sig Signals
	var err error
	sig.Deleted, sig.DeletedAt, err = s.readMarker(KeyDeletedAt)
	if err != nil {
		return Signals{}, err
	}
	sig.Updated, sig.UpdatedAt, err = s.readMarker(KeyUpdatedAt)
	if err != nil {
		return Signals{}, err
	}
	return sig, nil
}

// ClearSignals removes both markers once a consumer has observed them.
func (s *Store) ClearSignals() error {
	return errors.Join(
		s.backend.Remove(KeyDeletedAt),
		s.backend.Remove(KeyUpdatedAt),
	)
}

func (s *Store) readMarker(key string) (bool, time.Time, error) {
	raw, err := s.backend.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, time.Time{}, nil
	}
	return true, time.UnixMilli(ms), nil
}

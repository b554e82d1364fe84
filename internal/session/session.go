// Package session keeps the bearer token and the signed-in user, runs the
// demo login simulator when the API is unreachable and evaluates the
// route access rules.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/storage"
)

// Backend keys holding the session.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store persists the session in a storage backend. It satisfies
// gateway.TokenSource and gateway.SessionInvalidator.
type Store struct {
	backend storage.Backend
	logger  *slog.Logger
}

// NewStore creates a session store.
func NewStore(backend storage.Backend) *Store {
	return NewStoreWithLogger(backend, slog.Default())
}

// NewStoreWithLogger creates a session store with a custom logger.
func NewStoreWithLogger(backend storage.Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With("component", "session.store"),
	}
}

// Token returns the stored bearer token or "".
func (s *Store) Token() string {
	tok, err := s.backend.Get(KeyToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to read token", "error", err)
		}
		return ""
	}
	return tok
}

// RawUser returns the serialized user record as stored.
func (s *Store) RawUser() string {
	raw, err := s.backend.Get(KeyUser)
	if err != nil {
		return ""
	}
	return raw
}

// CurrentUser decodes the stored user. An unreadable record counts as no
// user.
func (s *Store) CurrentUser() (model.User, bool) {
	raw := s.RawUser()
	if raw == "" {
		return model.User{}, false
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("Failed to parse stored user", "error", err)
		return model.User{}, false
	}
	return u, true
}

// IsAuthenticated reports whether a token is stored.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// IsDemo reports whether the stored token was issued by the demo simulator.
func (s *Store) IsDemo() bool {
	return IsDemoToken(s.Token())
}

// IsDemoToken reports whether tok is a demo token.
func IsDemoToken(tok string) bool {
	return strings.Contains(tok, "dummy")
}

// Save stores token and user.
func (s *Store) Save(token string, user model.User) error {
	user.Token = ""
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.backend.Set(KeyToken, token); err != nil {
		return err
	}
	return s.backend.Set(KeyUser, string(data))
}

// Invalidate clears token and user.
func (s *Store) Invalidate() error {
	return errors.Join(
		s.backend.Remove(KeyToken),
		s.backend.Remove(KeyUser),
	)
}

// Logout is Invalidate under the name the CLI uses.
func (s *Store) Logout() error {
	s.logger.Info("Logging out")
	return s.Invalidate()
}

// Authorize evaluates the access rules for path against the stored session.
func (s *Store) Authorize(path string) Decision {
	return Authorize(path, s.Token(), s.RawUser())
}

var (
	_ gateway.TokenSource        = &Store{}
	_ gateway.SessionInvalidator = &Store{}
)

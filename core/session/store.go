// Package session keeps the identity of the current client user across runs.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core/user"
)

const (
	AuthKey = "edukanda_auth"
	UserKey = "edukanda_user"
)

// Store holds the current identity and mirrors it into a Storage.
type Store struct {
	storage Storage

	mu    sync.RWMutex
	token string
	usr   *user.User
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Restore loads the persisted session. It reports whether a session was restored.
// Incomplete entries or entries that fail to decode are deleted and the store stays unauthenticated.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.usr = "", nil

	token, okToken, err := s.storage.Get(ctx, AuthKey)
	if err != nil {
		return false, errors.Wrap(err, "reading token")
	}
	raw, okUser, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		return false, errors.Wrap(err, "reading user")
	}
	if !okToken && !okUser {
		return false, nil
	}

	var usr user.User
	if token == "" || raw == "" || json.Unmarshal([]byte(raw), &usr) != nil {
		if err := s.storage.Delete(ctx, AuthKey, UserKey); err != nil {
			return false, errors.Wrap(err, "discarding corrupted session")
		}
		return false, nil
	}
	s.token, s.usr = token, &usr
	return true, nil
}

// Save persists and sets the current session.
func (s *Store) Save(ctx context.Context, token string, usr user.User) error {
	raw, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "encoding user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(ctx, AuthKey, token); err != nil {
		return errors.Wrap(err, "saving token")
	}
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return errors.Wrap(err, "saving user")
	}
	s.token, s.usr = token, &usr
	return nil
}

// Clear drops the current session and its persisted entries.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.usr = "", nil
	return errors.Wrap(s.storage.Delete(ctx, AuthKey, UserKey), "clearing session")
}

// Current returns the current user and whether there is one.
func (s *Store) Current() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usr == nil {
		return user.User{}, false
	}
	return *s.usr, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usr != nil
}

// Role returns the role of the current user, or "" when unauthenticated.
func (s *Store) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usr == nil {
		return ""
	}
	return s.usr.Role
}

// HasRole reports whether the current user has one of roles. It is false when unauthenticated.
func (s *Store) HasRole(roles ...string) bool {
	role := s.Role()
	if role == "" {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

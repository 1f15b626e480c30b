// Package auth stores bcrypt-hashed account credentials, following
// internal/user/manager.go's Authenticate/CreateUser password handling but
// stripped down to just the hash table a telnet AUTHENTICATION collaborator
// needs.
package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoSuchAccount is returned by Verify for an unknown name, kept distinct
// from a bad password so callers can log the two differently if they want
// to; it must never be exposed to the telnet peer either way.
var ErrNoSuchAccount = errors.New("auth: no such account")

// Store holds bcrypt password hashes in memory, keyed by account name.
type Store struct {
	mu   sync.RWMutex
	hash map[string][]byte
}

// NewStore returns an empty credential store.
func NewStore() *Store {
	return &Store{hash: make(map[string][]byte)}
}

// SetPassword hashes password and stores it under name, replacing any
// existing credential.
func (s *Store) SetPassword(name, password string) error {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hash[name] = h
	return nil
}

// Verify reports whether password matches the stored hash for name.
func (s *Store) Verify(name, password string) (bool, error) {
	s.mu.RLock()
	h, ok := s.hash[name]
	s.mu.RUnlock()
	if !ok {
		return false, ErrNoSuchAccount
	}
	if err := bcrypt.CompareHashAndPassword(h, []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// Has reports whether name has a stored credential.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hash[name]
	return ok
}

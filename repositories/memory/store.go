// Package memory provides in-process repositories for local development and tests.
// They enforce the same auth_subject uniqueness as the PostgreSQL schema. Writes made
// inside a transaction are invisible to other readers until Commit.
package memory

import (
	"sync"

	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

// Store holds committed profiles and audit events behind a single mutex
type Store struct {
	mu        sync.Mutex
	released  *sync.Cond
	bySubject map[string]*models.NewProfile
	events    []*models.AuditEvent

	// auth subjects inserted by a transaction that has not finished yet
	reserved map[string]*Transaction
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{
		bySubject: make(map[string]*models.NewProfile),
		reserved:  make(map[string]*Transaction),
	}
	s.released = sync.NewCond(&s.mu)
	return s
}

// Repositories returns repository instances backed by the store
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Profiles:    &ProfileRepository{store: s},
		AuditEvents: &AuditRepository{store: s},
	}
}

// TransactionManager returns a transaction manager that undoes store writes on rollback
func (s *Store) TransactionManager() repositories.TransactionManager {
	return &TransactionManager{store: s}
}

// ProfileCount returns the number of committed profiles
func (s *Store) ProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySubject)
}

// Profile returns the stored row for an auth subject
func (s *Store) Profile(authSubject string) (models.NewProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bySubject[authSubject]
	if !ok {
		return models.NewProfile{}, false
	}
	return *p, true
}

// Events returns a copy of the recorded audit events
func (s *Store) Events() []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEvent, len(s.events))
	for i, e := range s.events {
		out[i] = *e
	}
	return out
}

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Role identifies what kind of user is logged in.
type Role string

const (
	RolePatient Role = "patient"
	RoleDentist Role = "dentist"
	RoleAdmin   Role = "admin"
)

// ErrNoSession is returned by persisters when no session has been stored.
var ErrNoSession = errors.New("no session stored")

// Session is the logged-in user: role, backend id, and the cached profile
// object returned at login. There is no expiry or refresh logic; a session
// lives until logout.
type Session struct {
	Role    Role                   `json:"role"`
	UserID  int                    `json:"id"`
	Profile map[string]interface{} `json:"profile,omitempty"`
}

// Persister mirrors a session to durable storage under one fixed key.
type Persister interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (*Session, error)
	Delete(ctx context.Context) error
}

// Store holds the current session in memory with a best-effort persistence
// fallback. It is an explicit object handed to its consumers; there is no
// package-level session.
type Store struct {
	mu        sync.RWMutex
	current   *Session
	persister Persister
}

// NewStore creates a session store. persister may be nil for memory-only use.
func NewStore(persister Persister) *Store {
	return &Store{persister: persister}
}

// Set records the session in memory and mirrors it to the persister. A
// persister failure is logged, not returned: losing the mirror must never
// block a login.
func (s *Store) Set(ctx context.Context, sess Session) {
	s.mu.Lock()
	copied := sess
	s.current = &copied
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, sess); err != nil {
		log.Warn().Err(err).Msg("Failed to persist session")
	}
}

// Get returns the current session, falling back to the persisted copy when
// memory is empty (fresh process). Returns nil when nobody is logged in.
func (s *Store) Get(ctx context.Context) *Session {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		copied := *current
		return &copied
	}

	if s.persister == nil {
		return nil
	}

	loaded, err := s.persister.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Warn().Err(err).Msg("Failed to load persisted session")
		}
		return nil
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	copied := *loaded
	return &copied
}

// Clear drops the in-memory session and best-effort deletes the mirror.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if err := s.persister.Delete(ctx); err != nil && !errors.Is(err, ErrNoSession) {
		log.Warn().Err(err).Msg("Failed to delete persisted session")
	}
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store maps user ids to sessions. Every operation, read or write, takes
// the same mutex for the duration of a map access only.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used by SweepExpired.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores sess under its user id, replacing any previous session.
func (s *Store) Put(sess Session) error {
	if sess.UserID == "" {
		return fmt.Errorf("session has no user id")
	}
	if sess.ExpiresAt.IsZero() {
		return fmt.Errorf("session for %q has no expiry", sess.UserID)
	}
	sess = sess.Clone()

	s.mu.Lock()
	s.sessions[sess.UserID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	sessionsActive.Set(float64(n))
	return nil
}

// Get is a pure lookup; expired sessions are still returned.
func (s *Store) Get(userID string) (Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	return sess.Clone(), true
}

// Delete removes the session for userID and reports whether one existed.
func (s *Store) Delete(userID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	n := len(s.sessions)
	s.mu.Unlock()

	sessionsActive.Set(float64(n))
	return ok
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepExpired drops every session whose expiry has passed and returns how
// many were removed.
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	sessionsActive.Set(float64(n))
	sessionsSweptTotal.Add(float64(removed))
	return removed
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", interval).Msg("Session sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				log.Info().Int("removed", n).Msg("Swept expired sessions")
			}
		}
	}
}

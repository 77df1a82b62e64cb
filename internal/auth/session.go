package auth

import (
	"sync"
	"time"
)

// Session holds the token of an interactive shell. It expires after the
// timeout current when it was set; a zero timeout never expires.
type Session struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	timeout   func() time.Duration
	now       func() time.Time
}

// NewSession creates an empty session whose timeout is read from timeout
// each time a token is set.
func NewSession(timeout func() time.Duration) *Session {
	return &Session{timeout: timeout, now: time.Now}
}

// Set starts a session for token.
func (s *Session) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.expiresAt = time.Time{}
	if d := s.timeout(); d > 0 {
		s.expiresAt = s.now().Add(d)
	}
}

// Clear ends the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

// Token returns the session token while it is valid. An expired session
// is cleared.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", false
	}
	if !s.expiresAt.IsZero() && s.now().After(s.expiresAt) {
		s.token = ""
		s.expiresAt = time.Time{}
		return "", false
	}
	return s.token, true
}

// Remaining returns the time left before expiry. ok is false without an
// active session; a session without expiry returns zero and true.
func (s *Session) Remaining() (time.Duration, bool) {
	if _, ok := s.Token(); !ok {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt.IsZero() {
		return 0, true
	}
	return s.expiresAt.Sub(s.now()), true
}

package auth

import (
	"testing"
	"time"
)

func TestSessionExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(func() time.Duration { return 30 * time.Minute })
	s.now = func() time.Time { return now }

	if _, ok := s.Token(); ok {
		t.Fatalf("expected empty session")
	}

	s.Set("token")
	if got, ok := s.Token(); !ok || got != "token" {
		t.Fatalf("expected active session, got %q %v", got, ok)
	}
	if left, ok := s.Remaining(); !ok || left != 30*time.Minute {
		t.Fatalf("unexpected remaining %v %v", left, ok)
	}

	now = now.Add(31 * time.Minute)
	if _, ok := s.Token(); ok {
		t.Fatalf("expected session to expire")
	}
	if _, ok := s.Remaining(); ok {
		t.Fatalf("expected no remaining time after expiry")
	}
}

func TestSessionWithoutTimeout(t *testing.T) {
	t.Parallel()

	s := NewSession(func() time.Duration { return 0 })
	s.Set("forever")
	if left, ok := s.Remaining(); !ok || left != 0 {
		t.Fatalf("expected non-expiring session, got %v %v", left, ok)
	}

	s.Clear()
	if _, ok := s.Token(); ok {
		t.Fatalf("expected cleared session")
	}
}

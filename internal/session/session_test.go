package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensed/internal/core"
	"expensed/internal/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewManager(repo, time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	user, err := m.Register(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want alice", user.Username)
	}

	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token == "" {
		t.Error("expected a non-empty token")
	}
	if sess.UserID != user.ID {
		t.Errorf("session user id = %q, want %q", sess.UserID, user.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := m.Register(ctx, "alice", "other")
	if !errors.Is(err, core.ErrDuplicateUser) {
		t.Errorf("got %v, want ErrDuplicateUser", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "secret"},
		{"wrong password", "alice", "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, core.ErrInvalidCredentials) {
				t.Errorf("got %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	got, err := m.Authenticate(sess.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}

	if _, err := m.Authenticate(""); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("empty token: got %v, want ErrNotAuthenticated", err)
	}
	if _, err := m.Authenticate("bogus"); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("unknown token: got %v, want ErrNotAuthenticated", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Advance the clock past the TTL.
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := m.Authenticate(sess.Token); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("expired token: got %v, want ErrNotAuthenticated", err)
	}

	// Expired sessions are removed, so the failure is stable.
	if _, err := m.Authenticate(sess.Token); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("second check: got %v, want ErrNotAuthenticated", err)
	}
}

func TestLogout(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	m.Logout(sess.Token)
	if _, err := m.Authenticate(sess.Token); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("after logout: got %v, want ErrNotAuthenticated", err)
	}

	// Logging out an unknown token is a no-op.
	m.Logout("bogus")
}

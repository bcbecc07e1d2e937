package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensed/internal/core"
	"expensed/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Session is an authenticated identity. The token is returned by Login and
// must accompany every subsequent ledger call; nothing below the tool
// boundary reads ambient state.
type Session struct {
	Token     string
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// Manager issues and validates session tokens. Sessions live in memory only:
// they are absent at process start and cleared by logout, matching the
// lifecycle of the tool server itself.
type Manager struct {
	store *storage.Repository
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

func NewManager(store *storage.Repository, ttl time.Duration) *Manager {
	return &Manager{
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Register creates a new user. It never authenticates: the caller still has
// to log in afterwards.
func (m *Manager) Register(ctx context.Context, username, password string) (core.User, error) {
	taken, err := m.store.UserExists(ctx, username)
	if err != nil {
		return core.User{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return core.User{}, core.ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := m.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and issues a fresh session token.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := m.store.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, core.ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}

	sess := Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: m.now().Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()

	slog.InfoContext(ctx, "User logged in", "username", username)
	return sess, nil
}

// Logout drops the session. It always succeeds, even for unknown tokens.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Authenticate resolves a token to its session. Missing, unknown, or expired
// tokens all fail with core.ErrNotAuthenticated.
func (m *Manager) Authenticate(token string) (Session, error) {
	if token == "" {
		return Session{}, core.ErrNotAuthenticated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return Session{}, core.ErrNotAuthenticated
	}
	if m.now().After(sess.ExpiresAt) {
		delete(m.sessions, token)
		return Session{}, core.ErrNotAuthenticated
	}
	return sess, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

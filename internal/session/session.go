// Package session owns the signed-in user's bearer token: loading it at
// startup, validating it, persisting changes and clearing it on logout or
// when the service rejects it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/types"
)

// ErrNoAuthenticator is returned when a sign-in method is called before
// SetAuthenticator.
var ErrNoAuthenticator = errors.New("session has no authenticator")

// Authenticator is the subset of the PDF service client the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*bookapi.AuthResponse, error)
	Register(ctx context.Context, email, password, confirmPassword string) (*bookapi.AuthResponse, error)
	GoogleVerify(ctx context.Context, credential string) (*bookapi.AuthResponse, error)
	Validate(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context) error
}

// file is the on-disk format.
type file struct {
	AuthToken string      `json:"auth_token"`
	UserData  *types.User `json:"user_data,omitempty"`
}

// Manager holds the current session. It satisfies api.TokenSource.
type Manager struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	auth  Authenticator
	token string
	user  *types.User
}

// NewManager creates a Manager persisting to path. An empty path keeps the
// session in memory only.
func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, logger: logger}
}

// SetAuthenticator attaches the service client used for sign-in and
// validation. The client usually takes the Manager as its token source, so
// the two are wired after construction.
func (m *Manager) SetAuthenticator(a Authenticator) {
	m.mu.Lock()
	m.auth = a
	m.mu.Unlock()
}

func (m *Manager) authenticator() (Authenticator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.auth == nil {
		return nil, ErrNoAuthenticator
	}
	return m.auth, nil
}

// Token returns the bearer token, or "" when signed out.
func (m *Manager) Token() string {
	if m == nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *types.User {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// LoggedIn reports whether a token is held.
func (m *Manager) LoggedIn() bool {
	return m.Token() != ""
}

// Load restores a persisted session and validates it against the service.
// A token that fails validation for any reason is cleared. It reports
// whether a valid session is now active.
func (m *Manager) Load(ctx context.Context) (bool, error) {
	if m.path == "" {
		return false, nil
	}
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		m.logger.Warn("discarding unreadable session file", "path", m.path, "error", err)
		m.Clear()
		return false, nil
	}
	if f.AuthToken == "" {
		return false, nil
	}

	auth, err := m.authenticator()
	if err != nil {
		return false, err
	}
	ok, err := auth.Validate(ctx, f.AuthToken)
	if !ok {
		m.logger.Info("stored session is no longer valid", "error", err)
		m.Clear()
		return false, nil
	}

	m.mu.Lock()
	m.token = f.AuthToken
	m.user = f.UserData
	m.mu.Unlock()
	m.logger.Debug("session restored", "path", m.path)
	return true, nil
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*types.User, error) {
	auth, err := m.authenticator()
	if err != nil {
		return nil, err
	}
	resp, err := auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.adopt(resp)
}

// Register creates an account and signs in.
func (m *Manager) Register(ctx context.Context, email, password, confirmPassword string) (*types.User, error) {
	auth, err := m.authenticator()
	if err != nil {
		return nil, err
	}
	resp, err := auth.Register(ctx, email, password, confirmPassword)
	if err != nil {
		return nil, err
	}
	return m.adopt(resp)
}

// Google signs in with a Google ID token credential.
func (m *Manager) Google(ctx context.Context, credential string) (*types.User, error) {
	auth, err := m.authenticator()
	if err != nil {
		return nil, err
	}
	resp, err := auth.GoogleVerify(ctx, credential)
	if err != nil {
		return nil, err
	}
	return m.adopt(resp)
}

func (m *Manager) adopt(resp *bookapi.AuthResponse) (*types.User, error) {
	token := resp.BearerToken()
	if token == "" {
		return nil, bookapi.ErrNoToken
	}

	m.mu.Lock()
	m.token = token
	m.user = resp.User
	err := m.saveLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("signed in", "user", userLabel(resp.User))
	return m.User(), nil
}

// SetUser replaces the stored profile after it changed on the service.
// It does nothing when signed out.
func (m *Manager) SetUser(u *types.User) error {
	if m == nil || u == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return nil
	}
	cp := *u
	m.user = &cp
	return m.saveLocked()
}

// Logout tells the service to end the session and clears local state even
// when the remote call fails.
func (m *Manager) Logout(ctx context.Context) {
	if auth, err := m.authenticator(); err == nil && m.LoggedIn() {
		if err := auth.Logout(ctx); err != nil {
			m.logger.Warn("remote logout failed", "error", err)
		}
	}
	m.Clear()
}

// Clear drops the in-memory session and removes the session file.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if m.path == "" {
		return
	}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("failed to remove session file", "path", m.path, "error", err)
	}
}

func (m *Manager) saveLocked() error {
	if m.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(file{AuthToken: m.token, UserData: m.user}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func userLabel(u *types.User) string {
	if u == nil {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	return u.Name
}

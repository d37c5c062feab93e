// Package session owns the authentication token and its expiry. It is the
// only writer of session state: login sets it, logout and expiry clear it,
// and any 401 from an authenticated call forces a clear through the client's
// unauthorized hook. Expiry is enforced lazily on Token() — there is no
// background timer.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/galeria-market/galeria-client/internal/client"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/interfaces"
	"github.com/galeria-market/galeria-client/internal/models"
)

var (
	// ErrInvalidCredentials is returned when the login endpoint rejects the
	// username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthService is returned for any other login failure: server error,
	// malformed response, or the service being unreachable.
	ErrAuthService = errors.New("authentication service error")
)

// Storage keys for the persisted session. Each clears independently.
const (
	keyToken     = "session.token"
	keyExpiresAt = "session.expires_at"
)

// defaultValidity is assumed when the login response omits expiresIn.
const defaultValidity = time.Hour

// Manager owns the client-side session. All reads and writes go through it;
// UI layers only observe.
type Manager struct {
	api    *client.Client
	kv     interfaces.KeyValueStorage
	logger *common.Logger

	mu      sync.Mutex
	current models.Session
}

// NewManager creates a session manager, restores any persisted session from
// storage, and registers itself as the client's token source and forced-logout
// hook.
func NewManager(api *client.Client, kv interfaces.KeyValueStorage, logger *common.Logger) *Manager {
	m := &Manager{
		api:    api,
		kv:     kv,
		logger: logger,
	}
	m.restore()

	api.SetTokenSource(m.Token)
	api.SetUnauthorizedHook(m.ForceLogout)

	return m
}

// restore loads the persisted token and expiry. A token without a readable
// expiry violates the session invariant and is discarded.
func (m *Manager) restore() {
	ctx := context.Background()

	token, err := m.kv.Get(ctx, keyToken)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("failed to restore session token")
		}
		return
	}

	raw, err := m.kv.Get(ctx, keyExpiresAt)
	if err != nil {
		m.logger.Warn().Msg("persisted token has no expiry, discarding session")
		m.clearPersisted(ctx)
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		m.logger.Warn().Err(err).Msg("persisted expiry is unreadable, discarding session")
		m.clearPersisted(ctx)
		return
	}

	m.mu.Lock()
	m.current = models.Session{Token: token, ExpiresAt: expiresAt}
	m.mu.Unlock()
}

// Login exchanges credentials for a bearer token and stores it with its
// expiry. A 401 maps to ErrInvalidCredentials; anything else to
// ErrAuthService.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.Session, error) {
	result, err := m.api.Login(ctx, username, password)
	if err != nil {
		if client.IsUnauthorized(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %s", ErrAuthService, client.Message(err))
	}

	validity := time.Duration(result.ExpiresIn) * time.Second
	if validity <= 0 {
		validity = defaultValidity
	}

	sess := models.Session{
		Token:     result.Token,
		ExpiresAt: time.Now().Add(validity),
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	if err := m.kv.Set(ctx, keyToken, sess.Token); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist session token")
	}
	if err := m.kv.Set(ctx, keyExpiresAt, sess.ExpiresAt.Format(time.RFC3339)); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist session expiry")
	}

	m.logger.Info().Str("username", username).Msg("login succeeded")
	return &sess, nil
}

// Token returns the stored bearer token, or "" when there is none or it has
// expired. Detecting expiry clears the session as a side effect, so repeated
// calls after expiry keep returning "".
func (m *Manager) Token(_ context.Context) string {
	m.mu.Lock()
	sess := m.current
	expired := sess.Token != "" && sess.IsExpired()
	if expired {
		m.current = models.Session{}
	}
	m.mu.Unlock()

	if expired {
		m.logger.Debug().Msg("session expired, clearing")
		m.clearPersisted(context.Background())
		return ""
	}
	return sess.Token
}

// IsAuthenticated reports whether a non-expired token is held.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.Token(ctx) != ""
}

// Logout notifies the server best-effort and unconditionally clears local
// session state. Server-side failures are logged and swallowed: logout must
// always succeed locally.
func (m *Manager) Logout(ctx context.Context) {
	if m.Token(ctx) != "" {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}
	m.ForceLogout()
}

// ForceLogout clears local session state without contacting the server.
// Registered as the client's 401 hook.
func (m *Manager) ForceLogout() {
	m.mu.Lock()
	hadToken := m.current.Token != ""
	m.current = models.Session{}
	m.mu.Unlock()

	m.clearPersisted(context.Background())
	if hadToken {
		m.logger.Info().Msg("session cleared")
	}
}

// CurrentUser fetches the authenticated user's profile. A 401 has already
// forced a local logout by the time the error is returned.
func (m *Manager) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	profile, err := m.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	return profile, nil
}

func (m *Manager) clearPersisted(ctx context.Context) {
	if err := m.kv.Delete(ctx, keyToken); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear persisted token")
	}
	if err := m.kv.Delete(ctx, keyExpiresAt); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear persisted expiry")
	}
}

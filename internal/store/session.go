package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
	"blogdesk/internal/storage"
)

const resourceSession = "session"

// Session clear reasons, used as metric labels.
const (
	ClearLogout       = "logout"
	ClearUnauthorized = "unauthorized"
	ClearExpired      = "expired"
	ClearIncomplete   = "incomplete"
	ClearCorrupt      = "corrupt"
)

var sessionLog = observability.NewStoreLogger(resourceSession)

// session is authenticated exactly when both token and user are set.
// verified is false for a session rehydrated from storage until the server
// accepts its token.
type session struct {
	token    string
	user     *models.User
	verified bool
}

func (ss session) authenticated() bool {
	return ss.token != "" && ss.user != nil
}

// SessionState is a consistent copy of the session.
type SessionState struct {
	Token           string       `json:"-"`
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Verified        bool         `json:"verified"`
}

// Session returns the session as seen by a single reader.
func (s *Store) Session() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{
		Token:           s.session.token,
		User:            copyUser(s.session.user),
		IsAuthenticated: s.session.authenticated(),
		Verified:        s.session.verified,
	}
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.token
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.authenticated()
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.session.user)
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.authenticated() && s.session.user.IsAdmin()
}

// Verified reports whether the server has accepted the current token since
// it was loaded.
func (s *Store) Verified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.verified
}

// Login authenticates with the backend. On failure the existing session is
// left as it was.
func (s *Store) Login(ctx context.Context, creds models.Credentials) error {
	resp, err := s.client.Login(ctx, creds)
	if err == nil {
		err = s.establish(ctx, resp)
	}
	return s.finish(ctx, sessionLog, resourceSession, models.ActionLogin, err)
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, in models.RegisterInput) error {
	resp, err := s.client.Register(ctx, in)
	if err == nil {
		err = s.establish(ctx, resp)
	}
	return s.finish(ctx, sessionLog, resourceSession, models.ActionRegister, err)
}

// establish installs a fresh session. Token and user become visible
// together, and caches belonging to any previous user are dropped in the
// same critical section.
func (s *Store) establish(ctx context.Context, resp *models.AuthResponse) error {
	if resp == nil || resp.Token == "" || resp.User == nil {
		return models.NewNetworkError(0, errors.New("auth response is missing token or user"))
	}
	user, err := json.Marshal(resp.User)
	if err != nil {
		return models.NewUnhandledError("encode user", err)
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.session = session{token: resp.Token, user: copyUser(resp.User), verified: true}
	s.resetUserCaches()
	s.mu.Unlock()

	s.persist(ctx, sessionLog, storage.KeyToken, resp.Token)
	s.persist(ctx, sessionLog, storage.KeyUser, string(user))
	return nil
}

// Logout ends the session and drops every cache tied to the user.
func (s *Store) Logout(ctx context.Context) {
	s.clearSession(ctx, ClearLogout)
	observability.RecordAction(resourceSession, "logout", nil)
}

// clearSession resets token, user, favorites and notifications in one
// critical section, then removes the durable token and user.
func (s *Store) clearSession(ctx context.Context, reason string) {
	s.clearSessionIf(ctx, reason, func(session) bool { return true })
}

// clearSessionIf clears the session only if match accepts it, checked under
// the same lock that clears it. It reports whether the session was cleared.
func (s *Store) clearSessionIf(ctx context.Context, reason string, match func(session) bool) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if !match(s.session) {
		s.mu.Unlock()
		return false
	}
	s.session = session{}
	s.resetUserCaches()
	s.mu.Unlock()

	s.forget(ctx, sessionLog, storage.KeyToken)
	s.forget(ctx, sessionLog, storage.KeyUser)

	observability.SessionClears.WithLabelValues(reason).Inc()
	observability.Logger.InfoContext(ctx, "session cleared", "reason", reason)
	return true
}

// resetUserCaches must be called with mu held.
func (s *Store) resetUserCaches() {
	s.favorites.reset()
	s.notifications.reset()
}

// handleUnauthorized is the client's 401 hook. token is what the rejected
// call carried: a session established since then is left alone. Otherwise
// the session is fully cleared before the redirect is issued.
func (s *Store) handleUnauthorized(ctx context.Context, token string) {
	s.clearSessionIf(ctx, ClearUnauthorized, func(ss session) bool { return ss.token == token })

	s.mu.RLock()
	nav, current := s.nav, s.session.token
	s.mu.RUnlock()
	if current != "" {
		sessionLog.LogFailure(ctx, "unauthorized", errors.New("401 for a previous session ignored"))
		return
	}
	if nav != nil {
		nav.Redirect(ctx, LoginPath)
	}
}

// markVerified is the client's success hook for calls sent with a bearer.
func (s *Store) markVerified(_ context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.authenticated() && s.session.token == token {
		s.session.verified = true
	}
}

// Revalidate asks the server for the profile behind the current token. On
// success the session is confirmed and the user refreshed; a 401 clears it
// through the interceptor. Without a session it does nothing.
func (s *Store) Revalidate(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return nil
	}
	user, err := s.client.GetProfile(ctx)
	if err == nil {
		s.replaceUser(ctx, token, user)
	}
	return s.finish(ctx, sessionLog, resourceSession, models.ActionRevalidate, err)
}

// UpdateProfile saves profile fields and replaces the session user.
func (s *Store) UpdateProfile(ctx context.Context, in models.ProfileInput) error {
	token := s.Token()
	user, err := s.client.UpdateProfile(ctx, in)
	if err == nil {
		s.replaceUser(ctx, token, user)
	}
	return s.finish(ctx, sessionLog, resourceSession, models.ActionUpdateProfile, err)
}

// ChangePassword changes the password of the signed-in user.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	err := s.client.ChangePassword(ctx, models.PasswordChange{OldPassword: oldPassword, NewPassword: newPassword})
	return s.finish(ctx, sessionLog, resourceSession, models.ActionChangePassword, err)
}

// replaceUser swaps in a server-provided user if the session still belongs
// to token, i.e. no logout or re-login happened during the call.
func (s *Store) replaceUser(ctx context.Context, token string, user *models.User) {
	if user == nil {
		return
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		sessionLog.LogStorageError(ctx, "encode", storage.KeyUser, err)
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.session.token != token || !s.session.authenticated() {
		s.mu.Unlock()
		return
	}
	s.session.user = copyUser(user)
	s.session.verified = true
	s.mu.Unlock()

	s.persist(ctx, sessionLog, storage.KeyUser, string(encoded))
}

// rehydrateSession loads the cached session as unverified. A token whose
// JWT exp has passed, a user that does not decode, or a half-written pair
// is discarded and removed from storage.
func (s *Store) rehydrateSession(ctx context.Context) error {
	token, hasToken, tokenErr := s.storage.Get(ctx, storage.KeyToken)
	raw, hasUser, userErr := s.storage.Get(ctx, storage.KeyUser)
	if err := errors.Join(tokenErr, userErr); err != nil {
		observability.StorageErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("rehydrate session: %w", err)
	}
	if !hasToken && !hasUser {
		return nil
	}

	reason := ""
	var user models.User
	switch {
	case !hasToken || token == "" || !hasUser:
		reason = ClearIncomplete
	case json.Unmarshal([]byte(raw), &user) != nil || user.ID == 0:
		reason = ClearCorrupt
	case tokenExpired(token, s.now()):
		reason = ClearExpired
	}
	if reason != "" {
		s.clearSession(ctx, reason)
		return nil
	}

	s.mu.Lock()
	s.session = session{token: token, user: &user}
	s.mu.Unlock()
	sessionLog.LogSuccess(ctx, "rehydrate", "user_id", user.ID)
	return nil
}

// tokenExpired reports whether token is a JWT whose exp lies at or before
// now. Tokens that are not JWTs, or carry no exp, are left to the server.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

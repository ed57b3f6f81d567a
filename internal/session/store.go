// Package session owns the signed-in user's session.
//
// A Store starts in the loading state, reads the persisted token and user
// once in Init, and afterwards is the single source of truth for whether the
// client is signed in. Login and Register persist on success and leave state
// untouched on failure. Logout clears local state first and only then tells
// the server, so a failed notification never leaves the user signed in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/localstore"
)

// Persisted keys.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
)

// Session is the signed-in identity.
type Session struct {
	UserID   string
	Email    string
	FullName string
	Token    string
	Expiry   time.Time // zero when the token carries no expiry
}

// Expired reports whether the token's expiry has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}

// DisplayName prefers the full name over the email.
func (s Session) DisplayName() string {
	if name := strings.TrimSpace(s.FullName); name != "" {
		return name
	}
	return s.Email
}

// Result is the outcome of a session operation, carrying a user-displayable
// message for both success and failure.
type Result struct {
	OK      bool
	Message string
	Err     error
}

// Store holds the process-wide session.
type Store struct {
	storage localstore.Store
	auth    api.Authenticator
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	loading bool
	current *Session
}

// Ensure Store implements api.TokenSource at compile time.
var _ api.TokenSource = (*Store)(nil)

// New returns a Store in the loading state. Call Init before gating any view
// on IsAuthenticated.
func New(storage localstore.Store, auth api.Authenticator, logger zerolog.Logger) *Store {
	if storage == nil {
		storage = localstore.NewMemory()
	}
	return &Store{
		storage: storage,
		auth:    auth,
		log:     logger.With().Str("component", "session").Logger(),
		now:     time.Now,
		loading: true,
	}
}

// SetAuthenticator attaches the auth endpoints after construction. The API
// client needs the Store as its token source, so the two are built in turn.
func (s *Store) SetAuthenticator(auth api.Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

// Init reads the persisted session once. Absent, partial, malformed or
// expired state resolves to signed out and the stale keys are removed.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loading {
		return
	}
	defer func() { s.loading = false }()

	sess, err := s.readPersisted(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding persisted session")
		if delErr := s.storage.Delete(ctx, KeyAccessToken, KeyUser); delErr != nil {
			s.log.Warn().Err(delErr).Msg("clear persisted session failed")
		}
		return
	}
	if sess == nil {
		return
	}
	s.current = sess
	s.log.Info().Str("user_id", sess.UserID).Msg("restored session")
}

var (
	errPartialSession = errors.New("persisted session is incomplete")
	errExpiredSession = errors.New("persisted token has expired")
)

func (s *Store) readPersisted(ctx context.Context) (*Session, error) {
	token, hasToken, err := s.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, err
	}
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	hasToken = hasToken && token != ""
	hasUser = hasUser && strings.TrimSpace(rawUser) != ""
	if !hasToken && !hasUser {
		return nil, nil
	}
	if !hasToken || !hasUser {
		return nil, errPartialSession
	}

	var user api.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, errPartialSession
	}
	sess := newSession(token, user)
	if sess.Expired(s.now()) {
		return nil, errExpiredSession
	}
	return &sess, nil
}

func newSession(token string, user api.User) Session {
	return Session{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Token:    token,
		Expiry:   tokenExpiry(token),
	}
}

// Loading reports whether Init has not completed yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsAuthenticated is true only once Init has run and a complete session exists.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loading && s.current != nil && s.current.Token != "" && s.current.UserID != ""
}

// Current returns a copy of the session and whether one exists.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Login signs in with email and password.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	if err := ValidateCredentials(email, password); err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	auth := s.authenticator()
	if auth == nil {
		return Result{Message: "Login failed", Err: errors.New("no authenticator configured")}
	}
	resp, err := auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.log.Warn().Err(err).Msg("login rejected")
		return Result{Message: api.UserMessage(err, "Login failed"), Err: err}
	}
	if err := s.establish(ctx, resp); err != nil {
		return Result{Message: "Login failed", Err: err}
	}
	return Result{OK: true, Message: "Login successful!"}
}

// Register creates an account and signs in.
func (s *Store) Register(ctx context.Context, email, password, fullName string) Result {
	if err := ValidateRegistration(email, password, password, fullName); err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	auth := s.authenticator()
	if auth == nil {
		return Result{Message: "Registration failed", Err: errors.New("no authenticator configured")}
	}
	resp, err := auth.Register(ctx, strings.TrimSpace(email), password, strings.TrimSpace(fullName))
	if err != nil {
		s.log.Warn().Err(err).Msg("registration rejected")
		return Result{Message: api.UserMessage(err, "Registration failed"), Err: err}
	}
	if err := s.establish(ctx, resp); err != nil {
		return Result{Message: "Registration failed", Err: err}
	}
	return Result{OK: true, Message: "Registration successful!"}
}

var errIncompleteToken = errors.New("token response missing access token or user")

func (s *Store) establish(ctx context.Context, resp api.TokenResponse) error {
	token := strings.TrimSpace(resp.AccessToken)
	if token == "" || strings.TrimSpace(resp.User.ID) == "" {
		s.log.Error().Msg("auth response incomplete")
		return errIncompleteToken
	}
	rawUser, err := json.Marshal(resp.User)
	if err != nil {
		return err
	}
	sess := newSession(token, resp.User)

	s.mu.Lock()
	defer s.mu.Unlock()
	// A session that cannot be persisted still works for this process.
	if err := s.storage.Set(ctx, KeyAccessToken, token); err != nil {
		s.log.Warn().Err(err).Msg("persist token failed")
	} else if err := s.storage.Set(ctx, KeyUser, string(rawUser)); err != nil {
		s.log.Warn().Err(err).Msg("persist user failed")
	}
	s.current = &sess
	s.loading = false
	s.log.Info().Str("user_id", sess.UserID).Msg("signed in")
	return nil
}

// Logout clears the local session, then notifies the server. The result is
// always successful: the local session is authoritative for this client.
func (s *Store) Logout(ctx context.Context) Result {
	token := s.clear(ctx)
	if auth := s.authenticator(); auth != nil && token != "" {
		if err := auth.Logout(ctx, token); err != nil {
			s.log.Warn().Err(err).Msg("logout notification failed")
		}
	}
	return Result{OK: true, Message: "Logged out successfully"}
}

// Invalidate drops the session without contacting the server, e.g. after the
// API rejects the token.
func (s *Store) Invalidate() {
	if token := s.clear(context.Background()); token != "" {
		s.log.Info().Msg("session invalidated by server")
	}
}

func (s *Store) clear(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var token string
	if s.current != nil {
		token = s.current.Token
	}
	s.current = nil
	if err := s.storage.Delete(ctx, KeyAccessToken, KeyUser); err != nil {
		s.log.Warn().Err(err).Msg("clear persisted session failed")
	}
	return token
}

func (s *Store) authenticator() api.Authenticator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

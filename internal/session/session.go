// Package session holds the authenticated user for the lifetime of the process and mirrors it to durable storage.
//
// A Store is either Anonymous or Authenticated. The auth token and the session record are written
// and removed together; if storage ever holds only one of them, or a record that cannot be parsed,
// the store treats the user as not authenticated and clears both.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/storage"
	"github.com/tukey-analytics/tukey/internal/types"
)

// defaults used when the login response omits user details
const (
	defaultOrganization = "Tukey Organization"
	defaultRegion       = "North America"
)

// Authenticator performs the remote login call (implemented by *client.Client)
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*types.LoginResponse, error)
}

// State is the authentication state of the store
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "Anonymous"
	case Authenticated:
		return "Authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TokenStatus describes a stored auth token
type TokenStatus int

const (
	TokenMissing TokenStatus = iota
	TokenOpaque              // not a JWT, the expiry cannot be checked locally
	TokenExpired
	TokenValid
)

var tokenStatusNames = []string{"TokenMissing", "TokenOpaque", "TokenExpired", "TokenValid"}

func (t TokenStatus) String() string {
	if t < 0 || int(t) >= len(tokenStatusNames) {
		return fmt.Sprintf("TokenStatus(%d)", int(t))
	}
	return tokenStatusNames[t]
}

// LoginResult is returned by Login. Error holds a user-facing message when Success is false.
type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// InvalidatedHandler is called after a 401 response ended an authenticated session
type InvalidatedHandler func(ctx context.Context, ev client.UnauthorizedEvent)

type Store struct {
	mu      sync.RWMutex
	storage storage.Store
	keys    storage.Keys
	auth    Authenticator
	logger  *slog.Logger
	now     func() time.Time

	current *types.Session
	token   string

	listenersMu sync.Mutex
	listeners   []InvalidatedHandler
}

type Option func(*Store)

func WithKeys(keys storage.Keys) Option {
	return func(s *Store) {
		s.keys = keys
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used to check token expiry
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates the store and loads any existing session from durable storage
func New(ctx context.Context, store storage.Store, auth Authenticator, opts ...Option) (*Store, error) {
	s := &Store{
		storage: store,
		keys:    storage.KeysWithPrefix(storage.DefaultPrefix),
		auth:    auth,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-derives the in-memory state from durable storage
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, hasToken, err := s.storage.Get(ctx, s.keys.Token)
	if err != nil {
		return fmt.Errorf("failed to read auth token: %w", err)
	}
	record, hasRecord, err := s.storage.Get(ctx, s.keys.Session)
	if err != nil {
		return fmt.Errorf("failed to read session record: %w", err)
	}

	s.current = nil
	s.token = ""

	if !hasToken && !hasRecord {
		return nil
	}

	reason := ""
	var sess types.Session
	switch {
	case !hasToken || token == "":
		reason = "session record without auth token"
	case !hasRecord:
		reason = "auth token without session record"
	case json.Unmarshal([]byte(record), &sess) != nil || sess.Email == "":
		reason = "session record is corrupt"
	case s.CheckTokenStatus(token) == TokenExpired:
		reason = "auth token has expired"
	}

	if reason != "" {
		s.logger.Info("clearing stored session",
			slog.String("component", "session"),
			slog.String("reason", reason),
		)
		return s.clearStorage(ctx)
	}

	s.current = &sess
	s.token = token
	return nil
}

// CheckTokenStatus checks the expiry of a JWT without verifying its signature.
// Tokens that are not JWTs are reported as TokenOpaque and are accepted as-is.
func (s *Store) CheckTokenStatus(token string) TokenStatus {
	if token == "" {
		return TokenMissing
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return TokenOpaque
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now()) {
		return TokenExpired
	}
	return TokenValid
}

// Login authenticates with the API and persists the session.
// On failure the state is unchanged and the result carries the translated error message.
func (s *Store) Login(ctx context.Context, email, password string) LoginResult {
	// the lock is not held during the network call: a 401 reaches HandleUnauthorized on this goroutine
	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Debug("login failed",
			slog.String("component", "session"),
			slog.String("error", err.Error()),
		)
		return LoginResult{Success: false, Error: client.ErrorMessage(err)}
	}
	if res == nil || res.AccessToken == "" {
		return LoginResult{Success: false, Error: "Login failed: no access token was returned."}
	}

	sess := sessionFromLogin(email, res)
	record, err := json.Marshal(sess)
	if err != nil {
		return LoginResult{Success: false, Error: client.ErrorMessage(err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.storage.SetAll(ctx, map[string]string{
		s.keys.Token:   res.AccessToken,
		s.keys.Session: string(record),
	})
	if err != nil {
		s.logger.Error("failed to persist session",
			slog.String("component", "session"),
			slog.String("error", err.Error()),
		)
		// do not leave one entry behind without the other
		_ = s.storage.Delete(ctx, s.keys.Token, s.keys.Session)
		return LoginResult{Success: false, Error: "Could not save your session. Please try again."}
	}

	s.current = &sess
	s.token = res.AccessToken

	s.logger.Info("logged in",
		slog.String("component", "session"),
		slog.String("email", sess.Email),
		slog.String("role", string(sess.Role)),
	)
	return LoginResult{Success: true}
}

// sessionFromLogin builds the session record, falling back to values derived from the supplied email
func sessionFromLogin(email string, res *types.LoginResponse) types.Session {
	var user types.LoginUser
	if res.User != nil {
		user = *res.User
	}

	sess := types.Session{
		Email:        user.Email,
		Name:         user.Name,
		Role:         types.Role(user.Role),
		Organization: user.Organization,
		Region:       user.Region,
	}
	if sess.Email == "" {
		sess.Email = email
	}
	if sess.Name == "" {
		sess.Name, _, _ = strings.Cut(email, "@")
	}
	if sess.Role == "" {
		sess.Role = types.RoleUser
	}
	if sess.Organization == "" {
		sess.Organization = defaultOrganization
	}
	if sess.Region == "" {
		sess.Region = defaultRegion
	}
	return sess
}

// Logout clears the session. The in-memory state is always cleared; the returned error reports storage failures.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.token = ""
	return s.clearStorage(ctx)
}

// HandleUnauthorized subscribes the store to the client's 401 events (see client.WithUnauthorizedHandler).
// Both the in-memory session and durable storage are cleared so they cannot diverge.
func (s *Store) HandleUnauthorized(ctx context.Context, ev client.UnauthorizedEvent) {
	s.mu.Lock()
	wasAuthenticated := s.current != nil
	s.current = nil
	s.token = ""
	err := s.clearStorage(ctx)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to clear stored session after 401",
			slog.String("component", "session"),
			slog.String("error", err.Error()),
		)
	}
	if !wasAuthenticated {
		return
	}

	s.logger.Info("session invalidated by the API",
		slog.String("component", "session"),
		slog.String("operation", ev.Operation),
	)

	s.listenersMu.Lock()
	listeners := append([]InvalidatedHandler(nil), s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(ctx, ev)
	}
}

// OnInvalidated registers a handler called when a 401 response ends the current session
func (s *Store) OnInvalidated(fn InvalidatedHandler) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// clearStorage must be called with mu held
func (s *Store) clearStorage(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.keys.Token, s.keys.Session); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	return nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Anonymous
	}
	return Authenticated
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Role == types.RoleAdmin
}

// Current returns a copy of the current session
func (s *Store) Current() (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return types.Session{}, false
	}
	return *s.current, true
}

// Token returns the auth token, empty when anonymous. The signature matches client.BearerTokenHook.
func (s *Store) Token(ctx context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ErrNotAuthenticated is returned by operations that require a session
var ErrNotAuthenticated = errors.New("not authenticated")

// Require returns the current session or ErrNotAuthenticated
func (s *Store) Require() (types.Session, error) {
	sess, ok := s.Current()
	if !ok {
		return types.Session{}, ErrNotAuthenticated
	}
	return sess, nil
}

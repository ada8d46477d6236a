package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/storage"
	"github.com/tukey-analytics/tukey/internal/types"
)

var (
	quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	keys        = storage.KeysWithPrefix(storage.DefaultPrefix)
)

type fakeAuthenticator struct {
	res   *types.LoginResponse
	err   error
	calls int
}

func (f *fakeAuthenticator) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	f.calls++
	return f.res, f.err
}

func newStore(t *testing.T, kv storage.Store, auth Authenticator, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger)}, opts...)
	s, err := New(context.Background(), kv, auth, opts...)
	require.NoError(t, err)
	return s
}

func hasKey(t *testing.T, kv storage.Store, key string) bool {
	t.Helper()
	_, ok, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestLoginWithDevBypass(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	apiClient := client.New("http://127.0.0.1:1", client.WithDevLoginBypass(true), client.WithLogger(quietLogger))
	s := newStore(t, kv, apiClient)

	result := s.Login(ctx, "admin@example.org", "test")
	require.True(t, result.Success, result.Error)
	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsAdmin())

	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, types.Session{
		Email:        "admin@example.org",
		Name:         "Admin User",
		Role:         types.RoleAdmin,
		Organization: "Example Org",
		Region:       "Global",
	}, sess)
	assert.Equal(t, "<sample_access_token>", s.Token(ctx))

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())
	assert.False(t, hasKey(t, kv, keys.Token))
	assert.False(t, hasKey(t, kv, keys.Session))
}

func TestLoginFallbacks(t *testing.T) {
	tests := []struct {
		name string
		res  *types.LoginResponse
		want types.Session
	}{
		{
			name: "no user block",
			res:  &types.LoginResponse{AccessToken: "tok"},
			want: types.Session{
				Email:        "jo.bloggs@example.org",
				Name:         "jo.bloggs",
				Role:         types.RoleUser,
				Organization: "Tukey Organization",
				Region:       "North America",
			},
		},
		{
			name: "partial user block",
			res: &types.LoginResponse{AccessToken: "tok", User: &types.LoginUser{
				Name:   "Jo",
				Role:   "admin",
				Region: "EMEA",
			}},
			want: types.Session{
				Email:        "jo.bloggs@example.org",
				Name:         "Jo",
				Role:         types.RoleAdmin,
				Organization: "Tukey Organization",
				Region:       "EMEA",
			},
		},
		{
			name: "role is kept as returned",
			res: &types.LoginResponse{AccessToken: "tok", User: &types.LoginUser{
				Email: "jo@example.org",
				Name:  "Jo",
				Role:  "Admin",
			}},
			want: types.Session{
				Email:        "jo@example.org",
				Name:         "Jo",
				Role:         types.Role("Admin"),
				Organization: "Tukey Organization",
				Region:       "North America",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, storage.NewMemoryStore(), &fakeAuthenticator{res: tt.res})
			result := s.Login(context.Background(), "jo.bloggs@example.org", "pw")
			require.True(t, result.Success)

			sess, ok := s.Current()
			require.True(t, ok)
			assert.Equal(t, tt.want, sess)
		})
	}
}

func TestLoginFailure(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["query","email"],"msg":"value is not a valid email address","type":"value_error"}]}`))
	}))
	defer srv.Close()

	s := newStore(t, kv, client.New(srv.URL, client.WithLogger(quietLogger)))
	result := s.Login(ctx, "not-an-email", "pw")

	assert.False(t, result.Success)
	assert.Equal(t, "value is not a valid email address", result.Error)
	assert.Equal(t, Anonymous, s.State())
	assert.False(t, hasKey(t, kv, keys.Token))
}

func TestLoginWithoutToken(t *testing.T) {
	s := newStore(t, storage.NewMemoryStore(), &fakeAuthenticator{res: &types.LoginResponse{}})
	result := s.Login(context.Background(), "a@b.c", "pw")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.False(t, s.IsAuthenticated())
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	kv, err := storage.NewFileStore(path)
	require.NoError(t, err)
	auth := &fakeAuthenticator{res: &types.LoginResponse{AccessToken: "tok", User: &types.LoginUser{
		Email: "sam@example.org", Name: "Sam", Role: "user", Organization: "Acme", Region: "APAC",
	}}}

	first := newStore(t, kv, auth)
	require.True(t, first.Login(ctx, "sam@example.org", "pw").Success)
	want, _ := first.Current()

	reopened, err := storage.NewFileStore(path)
	require.NoError(t, err)
	second := newStore(t, reopened, &fakeAuthenticator{})

	got, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, "tok", second.Token(ctx))
	assert.False(t, second.IsAdmin())
}

func TestInitialStateClearsRemnants(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "token without record", values: map[string]string{keys.Token: "tok"}},
		{name: "record without token", values: map[string]string{keys.Session: `{"email":"a@b.c","role":"user"}`}},
		{name: "corrupt record", values: map[string]string{keys.Token: "tok", keys.Session: "{not json"}},
		{name: "record without email", values: map[string]string{keys.Token: "tok", keys.Session: `{"name":"x"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			require.NoError(t, kv.SetAll(context.Background(), tt.values))

			s := newStore(t, kv, &fakeAuthenticator{})
			assert.Equal(t, Anonymous, s.State())
			assert.False(t, hasKey(t, kv, keys.Token))
			assert.False(t, hasKey(t, kv, keys.Session))
		})
	}
}

func TestInitialStateTokenExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := `{"email":"a@b.c","name":"a","role":"admin","organization":"o","region":"r"}`

	tests := []struct {
		name              string
		token             string
		wantAuthenticated bool
	}{
		{name: "expired jwt", token: signedToken(t, now.Add(-time.Minute)), wantAuthenticated: false},
		{name: "valid jwt", token: signedToken(t, now.Add(time.Hour)), wantAuthenticated: true},
		{name: "opaque token", token: "<sample_access_token>", wantAuthenticated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			require.NoError(t, kv.SetAll(context.Background(), map[string]string{keys.Token: tt.token, keys.Session: record}))

			s := newStore(t, kv, &fakeAuthenticator{}, WithClock(func() time.Time { return now }))
			assert.Equal(t, tt.wantAuthenticated, s.IsAuthenticated())
			assert.Equal(t, tt.wantAuthenticated, hasKey(t, kv, keys.Token))
		})
	}
}

func TestCheckTokenStatus(t *testing.T) {
	now := time.Now()
	s := newStore(t, storage.NewMemoryStore(), &fakeAuthenticator{}, WithClock(func() time.Time { return now }))

	tests := []struct {
		name  string
		token string
		want  TokenStatus
	}{
		{name: "missing", token: "", want: TokenMissing},
		{name: "opaque", token: "abc", want: TokenOpaque},
		{name: "expired", token: signedToken(t, now.Add(-time.Second)), want: TokenExpired},
		{name: "valid", token: signedToken(t, now.Add(time.Minute)), want: TokenValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.CheckTokenStatus(tt.token); got != tt.want {
				t.Errorf("CheckTokenStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleUnauthorizedClearsMemoryAndStorage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	apiClient := client.New(srv.URL, client.WithLogger(quietLogger), client.WithDevLoginBypass(true))
	s := newStore(t, kv, apiClient)
	apiClient.OnUnauthorized(s.HandleUnauthorized)

	var invalidated []client.UnauthorizedEvent
	s.OnInvalidated(func(ctx context.Context, ev client.UnauthorizedEvent) {
		invalidated = append(invalidated, ev)
	})

	require.True(t, s.Login(ctx, client.DevLoginEmail, client.DevLoginPassword).Success)
	require.True(t, s.IsAuthenticated())

	_, err := apiClient.ListDashboards(ctx)
	require.Error(t, err)

	assert.False(t, s.IsAuthenticated(), "in-memory session must not outlive the stored one")
	assert.False(t, hasKey(t, kv, keys.Token))
	assert.False(t, hasKey(t, kv, keys.Session))
	require.Len(t, invalidated, 1)
	assert.Equal(t, "list dashboards", invalidated[0].Operation)

	// a second 401 while anonymous does not notify again
	_, _ = apiClient.ListDashboards(ctx)
	assert.Len(t, invalidated, 1)
}

type failingStore struct {
	*storage.MemoryStore
	deleted bool
}

func (f *failingStore) SetAll(ctx context.Context, values map[string]string) error {
	return errors.New("disk full")
}

func (f *failingStore) Delete(ctx context.Context, keys ...string) error {
	f.deleted = true
	return f.MemoryStore.Delete(ctx, keys...)
}

func TestLoginStorageFailure(t *testing.T) {
	kv := &failingStore{MemoryStore: storage.NewMemoryStore()}
	s := newStore(t, kv, &fakeAuthenticator{res: &types.LoginResponse{AccessToken: "tok"}})

	result := s.Login(context.Background(), "a@b.c", "pw")
	assert.False(t, result.Success)
	assert.Equal(t, "Could not save your session. Please try again.", result.Error)
	assert.False(t, s.IsAuthenticated())
	assert.True(t, kv.deleted)
}

func TestRequireAndContext(t *testing.T) {
	s := newStore(t, storage.NewMemoryStore(), &fakeAuthenticator{res: &types.LoginResponse{AccessToken: "tok"}})

	_, err := s.Require()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.True(t, s.Login(context.Background(), "a@b.c", "pw").Success)
	sess, err := s.Require()
	require.NoError(t, err)

	ctx := ContextWithSession(context.Background(), sess)
	got, ok := ContextSession(ctx)
	assert.True(t, ok)
	assert.Equal(t, sess, got)

	_, ok = ContextSession(context.Background())
	assert.False(t, ok)
}

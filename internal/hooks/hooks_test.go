package hooks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/types"
)

func init() {
	retryDelay = time.Millisecond
}

// fakeAPI serves canned responses and counts requests per path
type fakeAPI struct {
	mu     sync.Mutex
	counts map[string]int
	routes map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T, routes map[string]http.HandlerFunc) (*fakeAPI, *client.Client) {
	t.Helper()
	api := &fakeAPI{counts: map[string]int{}, routes: routes}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api, client.New(srv.URL+"/api", client.WithLogger(logger))
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	f.mu.Lock()
	f.counts[r.Method+" "+path]++
	h, ok := f.routes[r.Method+" "+path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[route]
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func TestDashboardsCachedForFiveMinutes(t *testing.T) {
	api, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /dashboards/": writeJSON(`[{"id":"d1","name":"Sales"},{"id":"d2","name":"Stock"}]`),
	})

	now := time.Now()
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		defer clockMu.Unlock()
		now = now.Add(d)
	}

	q := Dashboards(query.NewCache(query.WithClock(clock)), c)
	ctx := context.Background()

	first, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	advance(4*time.Minute + 59*time.Second)
	second, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.count("GET /dashboards/"), "second call within five minutes must be served from the cache")

	advance(time.Second)
	_, err = q.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /dashboards/"))
}

func TestReadHookRetries(t *testing.T) {
	tests := []struct {
		name      string
		fetch     func(c *client.Client) error
		route     string
		wantCalls int
	}{
		{
			name: "dashboards retry twice",
			fetch: func(c *client.Client) error {
				_, err := Dashboards(query.NewCache(), c).Fetch(context.Background())
				return err
			},
			route:     "GET /dashboards/",
			wantCalls: 1 + DashboardsRetry,
		},
		{
			name: "health retries once",
			fetch: func(c *client.Client) error {
				_, err := Health(query.NewCache(), c, true).Fetch(context.Background())
				return err
			},
			route:     "GET /health",
			wantCalls: 1 + HealthRetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, c := newFakeAPI(t, map[string]http.HandlerFunc{
				tt.route: status(http.StatusInternalServerError),
			})

			err := tt.fetch(c)
			require.Error(t, err)
			assert.Equal(t, "Server error. Please try again later.", client.ErrorMessage(err))
			assert.Equal(t, tt.wantCalls, api.count(tt.route))
		})
	}
}

func TestHealthDisabled(t *testing.T) {
	api, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /health": writeJSON(`{"status":"ok"}`),
	})

	_, err := Health(query.NewCache(), c, false).Fetch(context.Background())
	assert.ErrorIs(t, err, query.ErrDisabled)
	assert.Zero(t, api.count("GET /health"))
}

func TestHealthPoll(t *testing.T) {
	_, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /health": writeJSON(`{"status":"ok","version":"1.2.0"}`),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got *types.Health
	err := Health(query.NewCache(), c, true).Poll(ctx, func(h *types.Health, err error) {
		require.NoError(t, err)
		got = h
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, got)
	assert.Equal(t, "1.2.0", got.Version)
}

func TestUploadPOSCallbackReceivesResponse(t *testing.T) {
	body := `{"rows":120,"columns":["a","b"],"sample":[{"a":1,"b":"x"},{"a":2,"b":"y"}]}`
	api, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /pos/upload": writeJSON(body),
	})

	var want types.UploadResult
	require.NoError(t, json.Unmarshal([]byte(body), &want))

	var got *types.UploadResult
	var errs atomic.Int32
	m := UploadPOS(c, Callbacks[*types.UploadResult]{
		OnSuccess: func(data *types.UploadResult) { got = data },
		OnError:   func(error) { errs.Add(1) },
	})

	res, err := m.Mutate(context.Background(), POSFile{Name: "sales.csv", Body: strings.NewReader("a,b\n1,x\n")})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.Same(t, res, got)
	assert.Zero(t, errs.Load())
	assert.Equal(t, 1, api.count("POST /pos/upload"))
}

func TestMutationHooksDoNotRetry(t *testing.T) {
	api, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /dashboards/d1/embed-token": status(http.StatusForbidden),
	})

	var gotErr error
	m := DashboardEmbedToken(c, Callbacks[*types.EmbedToken]{
		OnSuccess: func(*types.EmbedToken) { t.Error("unexpected success") },
		OnError:   func(err error) { gotErr = err },
	})

	_, err := m.Mutate(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, err, gotErr)
	assert.Equal(t, "Forbidden. You do not have permission to perform this action.", client.ErrorMessage(gotErr))
	assert.Equal(t, 1, api.count("GET /dashboards/d1/embed-token"))
}

func TestAIDecisionCallbackReceivesQuery(t *testing.T) {
	_, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /ai/decision": writeJSON(`{"decision":"Restock","confidence":"high","reason":"Demand up"}`),
	})

	q := types.AIQuery{TimePeriod: "Q1", Region: "EMEA", TopProducts: []string{"tea"}, SalesTrend: "up"}
	var gotQuery types.AIQuery
	var gotDecision *types.AIDecision
	m := AIDecision(c, AIDecisionCallbacks{
		OnSuccess: func(d *types.AIDecision, submitted types.AIQuery) {
			gotDecision = d
			gotQuery = submitted
		},
	})

	_, err := m.Mutate(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, q, gotQuery)
	require.NotNil(t, gotDecision)
	assert.Equal(t, "Restock", gotDecision.Decision)
}

func TestLoginHook(t *testing.T) {
	_, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("password") != "s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(`{"access_token":"tok","token_type":"bearer"}`)(w, r)
		},
	})

	tests := []struct {
		name       string
		creds      Credentials
		wantToken  string
		wantErrMsg string
	}{
		{name: "valid", creds: Credentials{Email: "a@b.c", Password: "s3cret"}, wantToken: "tok"},
		{name: "rejected", creds: Credentials{Email: "a@b.c", Password: "nope"}, wantErrMsg: "Unauthorized. Please log in again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Login(c, Callbacks[*types.LoginResponse]{})
			res, err := m.Mutate(context.Background(), tt.creds)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, client.ErrorMessage(err))
				assert.ErrorIs(t, m.State().Err, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, res.AccessToken)
		})
	}
}

func TestReadHookDoesNotRetryRejectedSession(t *testing.T) {
	api, c := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /dashboards/": status(http.StatusUnauthorized),
	})

	_, err := Dashboards(query.NewCache(), c).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, api.count("GET /dashboards/"))
}

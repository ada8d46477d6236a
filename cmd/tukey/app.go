package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/config"
	"github.com/tukey-analytics/tukey/internal/logger"
	"github.com/tukey-analytics/tukey/internal/metrics"
	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/session"
	"github.com/tukey-analytics/tukey/internal/storage"
)

// app holds the wiring shared by the commands
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	api      *client.Client
	session  *session.Store
	cache    *query.Cache
	registry *prometheus.Registry
	out      io.Writer
	jsonOut  bool
}

// newApp loads the configuration and connects the client, storage and session store.
// serve selects the JSON/tint logger used by long-running processes; other commands log to stderr.
func newApp(ctx context.Context, opts *rootOptions, out io.Writer, serve bool) (*app, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.APIBaseURL = opts.apiURL
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	level := logger.ParseLogLevel(cfg.LogLevel)
	log := logger.NewTextLogger(os.Stderr, level)
	if serve {
		log = logger.InitLogger(level, cfg.Environment)
	}
	slog.SetDefault(log)

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clientOpts := []client.Option{
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(log),
		client.WithRequestHook(client.RequestIDHook()),
		client.WithMetrics(metrics.NewClientMetrics(registry)),
		client.WithDevLoginBypass(cfg.DevLoginBypass),
	}
	api := client.New(cfg.APIBaseURL, clientOpts...)

	sess, err := session.New(ctx, store, api,
		session.WithKeys(storage.KeysWithPrefix(cfg.StoragePrefix)),
		session.WithLogger(log),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	api.OnUnauthorized(sess.HandleUnauthorized)
	if !serve {
		sess.OnInvalidated(func(ctx context.Context, ev client.UnauthorizedEvent) {
			_, _ = fmt.Fprintln(os.Stderr, "session expired, please log in")
		})
	}

	if cfg.AttachAuthToken {
		api.AddRequestHook(client.BearerTokenHook(sess.Token))
	}

	if cfg.DevLoginBypass {
		log.Warn("development login bypass is enabled", slog.String("email", client.DevLoginEmail))
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		store:    store,
		api:      api,
		session:  sess,
		cache:    query.NewCache(),
		registry: registry,
		out:      out,
		jsonOut:  opts.jsonOut,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// requireSession returns an error telling the user to log in when no session is stored
func (a *app) requireSession() error {
	if _, err := a.session.Require(); err != nil {
		return fmt.Errorf("you are not logged in, run \"tukey login\" first")
	}
	return nil
}

// userError converts an API failure into the translated user message
func userError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", client.ErrorMessage(err))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// Package server implements the local gateway started by "tukey serve".
//
// The gateway exposes the session store and the API hooks over HTTP for a browser front-end
// running on another origin. There is a single session per gateway process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jub0bs/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/config"
	"github.com/tukey-analytics/tukey/internal/hooks"
	"github.com/tukey-analytics/tukey/internal/insights"
	"github.com/tukey-analytics/tukey/internal/logger"
	"github.com/tukey-analytics/tukey/internal/metrics"
	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/session"
	"github.com/tukey-analytics/tukey/internal/types"
)

const (
	ServerShutdownTimeout = 10 * time.Second

	// maxUploadMemory is the part of a multipart upload held in memory, the rest is spooled to disk
	maxUploadMemory = 8 << 20
)

// API is the remote API as used by the gateway (implemented by *client.Client)
type API interface {
	hooks.DashboardLister
	hooks.EmbedTokenFetcher
	hooks.POSUploader
	hooks.DecisionMaker
	hooks.HealthChecker
}

type Deps struct {
	Session  *session.Store
	API      API
	Cache    *query.Cache
	History  *insights.History
	Gatherer prometheus.Gatherer
	Metrics  *metrics.GatewayMetrics
}

type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	session *session.Store
	cache   *query.Cache
	history *insights.History

	dashboards *query.Query[[]types.Dashboard]
	health     *query.Query[*types.Health]
	embedToken *query.Mutation[string, *types.EmbedToken]
	upload     *query.Mutation[hooks.POSFile, *types.UploadResult]
	decision   *query.Mutation[types.AIQuery, *types.AIDecision]

	gatherer prometheus.Gatherer
	metrics  *metrics.GatewayMetrics
}

func New(cfg *config.Config, log *slog.Logger, deps Deps) (*Server, error) {
	if deps.Session == nil || deps.API == nil {
		return nil, errors.New("server requires a session store and an API client")
	}
	if deps.Cache == nil {
		deps.Cache = query.NewCache()
	}
	if deps.History == nil {
		deps.History = insights.NewHistory()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		logger:     log,
		session:    deps.Session,
		cache:      deps.Cache,
		history:    deps.History,
		dashboards: hooks.Dashboards(deps.Cache, deps.API),
		health:     hooks.Health(deps.Cache, deps.API, true),
		embedToken: hooks.DashboardEmbedToken(deps.API, hooks.Callbacks[*types.EmbedToken]{}),
		upload:     hooks.UploadPOS(deps.API, hooks.Callbacks[*types.UploadResult]{}),
		decision:   hooks.AIDecision(deps.API, hooks.AIDecisionCallbacks{}),
		gatherer:   deps.Gatherer,
		metrics:    deps.Metrics,
	}

	// a session ended by the API must not leave the previous user's data in the cache
	s.session.OnInvalidated(func(ctx context.Context, _ client.UnauthorizedEvent) {
		s.resetUserData()
	})

	corsMiddleware, err := NewCORS(cfg.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("failed to create CORS middleware: %w", err)
	}

	s.setupMiddleware(corsMiddleware)
	s.registerRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(corsMiddleware *cors.Middleware) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(CountRequests(s.metrics))
	s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))
	s.router.Use(SecurityHeaders(s.config.Environment))
	s.router.Use(CORS(corsMiddleware))
	s.router.Use(RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Get("/session", s.handleGetSession)
	s.router.Post("/session", s.handleLogin)
	s.router.Delete("/session", s.handleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(RequireAuth(s.session))

		r.Get("/dashboards", s.handleListDashboards)
		r.Get("/dashboards/{id}/embed", s.handleEmbed)
		r.Post("/decisions", s.handleDecision)
		r.Get("/decisions", s.handleDecisionHistory)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/uploads", s.handleUpload)
		})
	})
}

func (s *Server) resetUserData() {
	s.cache.Clear()
	s.history.Clear()
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.ListenAddr()

	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", slog.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("gateway forced to shutdown", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerank/internal/config"
	"github.com/Clark-Hu/cinerank/internal/leaderboard"
	"github.com/Clark-Hu/cinerank/internal/logging"
	"github.com/Clark-Hu/cinerank/internal/metadata"
	"github.com/Clark-Hu/cinerank/internal/metrics"
	"github.com/Clark-Hu/cinerank/internal/repository"
	"github.com/Clark-Hu/cinerank/internal/store"
)

const voterHeader = "X-Voter-Id"

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	board    *leaderboard.Service
	metadata metadata.Client
	logger   zerolog.Logger
	router   chi.Router
	httpSrv  *http.Server
	now      func() time.Time
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, board *leaderboard.Service, meta metadata.Client, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		board:    board,
		metadata: meta,
		logger:   logging.Component(logger, "http"),
		router:   chi.NewRouter(),
		now:      time.Now,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", voterHeader},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
	s.router.Route("/items", func(r chi.Router) {
		r.Get("/", s.handleListItems)
		r.Post("/", s.handleCreateItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetItem)
			r.Delete("/", s.handleDeleteItem)
			r.Post("/metadata/refresh", s.handleRefreshMetadata)
			r.Get("/comments", s.handleListComments)
			r.Group(func(r chi.Router) {
				r.Use(s.voteRateLimit())
				r.Post("/like", s.handleLike)
				r.Post("/dislike", s.handleDislike)
				r.Put("/rating", s.handleRate)
				r.Post("/comments", s.handleAddComment)
			})
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// voteRateLimit limits interaction writes per voter, falling back to the
// client IP when the voter header is absent.
func (s *Server) voteRateLimit() func(http.Handler) http.Handler {
	if s.cfg.VoteRateLimitPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.VoteRateLimitPerMin,
		time.Minute,
		httprate.WithKeyFuncs(voterKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down")
		}),
	)
}

func voterKey(r *http.Request) (string, error) {
	if voter := strings.TrimSpace(r.Header.Get(voterHeader)); voter != "" {
		return "voter:" + voter, nil
	}
	return httprate.KeyByIP(r)
}

// requestLogger logs one line per request and records its duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		r = r.WithContext(logging.WithRequestID(r.Context(), s.logger, reqID))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, route, status, elapsed)

		event := s.logger.Info()
		if status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// Start boots the HTTP server and blocks until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type poolStatsResponse struct {
	TotalConns    int32 `json:"totalConns"`
	IdleConns     int32 `json:"idleConns"`
	AcquiredConns int32 `json:"acquiredConns"`
	MaxConns      int32 `json:"maxConns"`
}

type healthResponse struct {
	Status   string             `json:"status"`
	Database *poolStatsResponse `json:"database,omitempty"`
	Cache    string             `json:"cache,omitempty"`
}

// handleHealthz reports 503 only when the database is down. A failing cache
// is reported but leaderboards are still served without it.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	resp := healthResponse{Status: "ok", Cache: "ok"}
	if stat := s.store.Stats(); stat != nil {
		resp.Database = &poolStatsResponse{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
		}
	}
	if s.board != nil {
		if err := s.board.PingCache(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("leaderboard cache unreachable")
			resp.Cache = "unavailable"
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

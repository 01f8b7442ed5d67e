package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/cinerank/internal/cache"
	"github.com/Clark-Hu/cinerank/internal/config"
	httpserver "github.com/Clark-Hu/cinerank/internal/http"
	"github.com/Clark-Hu/cinerank/internal/leaderboard"
	"github.com/Clark-Hu/cinerank/internal/logging"
	"github.com/Clark-Hu/cinerank/internal/metadata"
	"github.com/Clark-Hu/cinerank/internal/ranking"
	"github.com/Clark-Hu/cinerank/internal/repository"
	"github.com/Clark-Hu/cinerank/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	boardCache, closeCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	weights := cfg.RankingWeights()
	engine, err := ranking.New(&weights)
	if err != nil {
		return fmt.Errorf("ranking weights: %w", err)
	}
	w := engine.Weights()
	logger.Info().
		Float64("rating_weight", w.Rating).
		Float64("like_weight", w.Like).
		Float64("confidence_prior", w.ConfidencePrior).
		Msg("ranking engine ready")

	metaClient, err := metadata.NewHTTPClient(metadata.Options{
		BaseURL:         cfg.MetadataURL,
		APIKey:          cfg.MetadataAPIKey,
		Timeout:         time.Duration(cfg.MetadataTimeoutSecs) * time.Second,
		BreakerFailures: uint32(cfg.MetadataBreakerFailures),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("init metadata client: %w", err)
	}

	repo := repository.New(st)
	board := leaderboard.NewService(repo.Items, engine, leaderboard.Options{
		Cache:  boardCache,
		TTL:    time.Duration(cfg.LeaderboardCacheTTLSecs) * time.Second,
		Logger: logger,
	})
	server := httpserver.New(cfg, st, repo, board, metaClient, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})
	return g.Wait()
}

// buildCache returns the leaderboard cache selected by configuration: Redis
// when REDIS_URL is set, otherwise an in-process cache.
func buildCache(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Cache, func(), error) {
	if cfg.LeaderboardCacheTTLSecs <= 0 {
		logger.Info().Msg("leaderboard cache disabled")
		return cache.Noop{}, func() {}, nil
	}
	if cfg.RedisURL == "" {
		logger.Info().Msg("using in-memory leaderboard cache")
		return cache.NewMemory(), func() {}, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	r, err := cache.DialRedis(dialCtx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info().Msg("using redis leaderboard cache")
	return r, func() { _ = r.Close() }, nil
}

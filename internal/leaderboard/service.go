package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerank/internal/cache"
	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/metrics"
	"github.com/Clark-Hu/cinerank/internal/ranking"
	"github.com/Clark-Hu/cinerank/internal/repository"
)

// Source loads items with their interactions populated.
type Source interface {
	Snapshot(ctx context.Context, filters repository.ItemListFilters) ([]domain.MediaItem, error)
}

// Options configures a Service.
type Options struct {
	Cache  cache.Cache
	TTL    time.Duration
	Logger zerolog.Logger
}

// Service computes leaderboards from repository snapshots.
type Service struct {
	source Source
	engine *ranking.Engine
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewService wires a leaderboard service. A nil engine uses the default
// weights and a nil cache disables caching.
func NewService(source Source, engine *ranking.Engine, opts Options) *Service {
	if engine == nil {
		engine = ranking.Default()
	}
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		source: source,
		engine: engine,
		cache:  c,
		ttl:    opts.TTL,
		logger: opts.Logger.With().Str("component", "leaderboard").Logger(),
	}
}

// Engine returns the ranking engine used by the service.
func (s *Service) Engine() *ranking.Engine {
	return s.engine
}

// Leaderboard returns the ranked items matching f. Limit is applied after
// ranking so ranks are positions in the full filtered list.
func (s *Service) Leaderboard(ctx context.Context, f Filter) ([]ranking.Entry, error) {
	key := f.key()
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		metrics.LeaderboardCacheResults.WithLabelValues("error").Inc()
		s.logger.Warn().Err(genErr).Msg("read leaderboard cache generation")
	} else if entries, ok := s.cached(ctx, key); ok {
		return entries, nil
	}

	start := time.Now()
	items, err := s.source.Snapshot(ctx, repository.ItemListFilters{Category: f.Category})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	entries := s.engine.Rank(items, f.Predicate())
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	metrics.LeaderboardComputeDuration.Observe(time.Since(start).Seconds())

	if genErr == nil {
		s.store(ctx, key, entries, gen)
	}
	return entries, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// PingCache checks the cache backend when it supports it. In-process caches
// always report healthy.
func (s *Service) PingCache(ctx context.Context) error {
	if p, ok := s.cache.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Invalidate drops cached leaderboards. Failures are logged only.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("invalidate leaderboard cache")
	}
}

func (s *Service) cached(ctx context.Context, key string) ([]ranking.Entry, bool) {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.LeaderboardCacheResults.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("read leaderboard cache")
		return nil, false
	}
	if !ok {
		metrics.LeaderboardCacheResults.WithLabelValues("miss").Inc()
		return nil, false
	}
	var entries []ranking.Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		metrics.LeaderboardCacheResults.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("decode cached leaderboard")
		return nil, false
	}
	metrics.LeaderboardCacheResults.WithLabelValues("hit").Inc()
	return entries, true
}

// store caches entries computed under generation gen. A write that
// invalidated the cache meanwhile makes the entries stale and they are dropped.
func (s *Service) store(ctx context.Context, key string, entries []ranking.Entry, gen uint64) {
	payload, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode leaderboard for cache")
		return
	}
	err = s.cache.Set(ctx, key, payload, s.ttl, gen)
	switch {
	case errors.Is(err, cache.ErrStale):
		metrics.LeaderboardCacheResults.WithLabelValues("stale").Inc()
		s.logger.Debug().Str("key", key).Msg("leaderboard invalidated while computing, not cached")
	case err != nil:
		s.logger.Warn().Err(err).Str("key", key).Msg("write leaderboard cache")
	}
}

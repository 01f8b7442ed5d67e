package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "cinerank:leaderboard"

// Redis stores entries under a generation number. Invalidate bumps the
// generation so stale entries are never read again and age out by TTL.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. An empty prefix uses the default.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL, connects and pings the server.
func DialRedis(ctx context.Context, rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	r := NewRedis(redis.NewClient(opts), "")
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return r, nil
}

// Ping reports whether the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) generationKey() string {
	return r.prefix + ":gen"
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) readGeneration(ctx context.Context, c stringGetter) (uint64, error) {
	raw, err := c.Get(ctx, r.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache generation %q: %w", raw, err)
	}
	return gen, nil
}

func (r *Redis) entryKey(gen uint64, key string) string {
	return fmt.Sprintf("%s:%d:%s", r.prefix, gen, key)
}

func (r *Redis) Generation(ctx context.Context) (uint64, error) {
	return r.readGeneration(ctx, r.client)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	gen, err := r.readGeneration(ctx, r.client)
	if err != nil {
		return nil, false, err
	}
	value, err := r.client.Get(ctx, r.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes under WATCH on the generation key, so an Invalidate racing with
// the write aborts it.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, gen uint64) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.entryKey(gen, key), value, ttl)
			return nil
		})
		return err
	}, r.generationKey())
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, r.generationKey()).Err()
}

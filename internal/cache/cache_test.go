package cache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestMemory_GetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "all"); err != nil || ok {
		t.Fatalf("empty cache Get = ok %v err %v", ok, err)
	}
	if err := m.Set(ctx, "all", []byte(`[1]`), 0, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := m.Get(ctx, "all")
	if err != nil || !ok || string(got) != `[1]` {
		t.Fatalf("Get = %q ok %v err %v", got, ok, err)
	}

	got[0] = 'x'
	again, _, _ := m.Get(ctx, "all")
	if string(again) != `[1]` {
		t.Fatalf("cached value mutated through returned slice: %q", again)
	}

	if err := m.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "all"); ok {
		t.Fatalf("entry survived invalidation")
	}
}

func TestMemory_SetRejectsOldGeneration(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	gen, err := m.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if err := m.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := m.Set(ctx, "all", []byte("old"), time.Minute, gen); !errors.Is(err, ErrStale) {
		t.Fatalf("Set err = %v, want ErrStale", err)
	}
	if _, ok, _ := m.Get(ctx, "all"); ok {
		t.Fatalf("value computed before invalidation was stored")
	}

	next, _ := m.Generation(ctx)
	if next != gen+1 {
		t.Fatalf("generation = %d, want %d", next, gen+1)
	}
	if err := m.Set(ctx, "all", []byte("new"), time.Minute, next); err != nil {
		t.Fatalf("Set current generation: %v", err)
	}
	if got, ok, _ := m.Get(ctx, "all"); !ok || string(got) != "new" {
		t.Fatalf("Get = %q ok %v", got, ok)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", []byte("v"), time.Minute, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatalf("entry expired early")
	}
	now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("entry should expire at ttl")
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry not evicted, len = %d", m.Len())
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("noop cache returned a hit")
	}
}

// TestRedis_Smoke runs against a live server when REDIS_URL is set.
func TestRedis_Smoke(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis smoke test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := DialRedis(ctx, url)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer r.Close()
	r.prefix = "cinerank-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer r.client.Del(context.Background(), r.generationKey())

	gen, err := r.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if err := r.Set(ctx, "all", []byte("payload"), time.Minute, gen); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := r.Get(ctx, "all")
	if err != nil || !ok || string(got) != "payload" {
		t.Fatalf("Get = %q ok %v err %v", got, ok, err)
	}
	if err := r.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, err := r.Get(ctx, "all"); err != nil || ok {
		t.Fatalf("entry visible after invalidation: ok %v err %v", ok, err)
	}
	if err := r.Set(ctx, "all", []byte("stale"), time.Minute, gen); !errors.Is(err, ErrStale) {
		t.Fatalf("Set with old generation err = %v, want ErrStale", err)
	}
	if _, ok, _ := r.Get(ctx, "all"); ok {
		t.Fatalf("stale value stored under the new generation")
	}
}

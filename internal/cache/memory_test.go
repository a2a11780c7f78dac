package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type report struct {
	User  string `json:"user"`
	Score int    `json:"score"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if err := c.Set(ctx, "weekly:u1:1", report{User: "u1", Score: 80}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got report
	if err := c.Get(ctx, "weekly:u1:1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.User != "u1" || got.Score != 80 {
		t.Errorf("Get() = %+v", got)
	}

	if err := c.Get(ctx, "weekly:u2:1", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(missing) error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithNow(func() time.Time { return now }))

	_ = c.Set(ctx, "k", report{Score: 1}, time.Minute)
	now = now.Add(time.Minute)

	var got report
	if err := c.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired Get() error = %v, want ErrCacheMiss", err)
	}
	if c.Len() != 0 {
		t.Errorf("expired key not dropped")
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	for _, k := range []string{"weekly:u1:100", "weekly:u1:200", "weekly:u10:100", "weekly:u2:100"} {
		_ = c.Set(ctx, k, report{}, time.Minute)
	}

	if err := c.DeleteByPattern(ctx, "weekly:u1:*"); err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	var got report
	if err := c.Get(ctx, "weekly:u10:100", &got); err != nil {
		t.Errorf("u10 entry removed by u1 pattern: %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMaxEntries(2), WithNow(func() time.Time { return now }))

	_ = c.Set(ctx, "a", report{}, time.Hour)
	now = now.Add(time.Second)
	_ = c.Set(ctx, "b", report{}, time.Hour)
	now = now.Add(time.Second)

	var got report
	_ = c.Get(ctx, "a", &got)
	now = now.Add(time.Second)
	_ = c.Set(ctx, "c", report{}, time.Hour)

	if err := c.Get(ctx, "b", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("b should have been evicted, got %v", err)
	}
	if err := c.Get(ctx, "a", &got); err != nil {
		t.Errorf("a evicted despite recent use: %v", err)
	}
}

func TestNoopAlwaysMisses(t *testing.T) {
	var c Service = Noop{}
	_ = c.Set(context.Background(), "k", 1, time.Minute)
	var v int
	if err := c.Get(context.Background(), "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Noop.Get() = %v", err)
	}
}

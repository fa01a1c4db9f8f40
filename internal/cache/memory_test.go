package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	c := NewMemory(time.Hour)
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: err = %v", err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "short", "a", time.Minute)
	_ = c.Set(ctx, "default", "b", 0)

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected short entry to expire, err = %v", err)
	}
	if got, err := c.Get(ctx, "default"); err != nil || got != "b" {
		t.Errorf("default entry = %q, %v", got, err)
	}

	now = now.Add(time.Hour)
	if _, err := c.Get(ctx, "default"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected default entry to expire, err = %v", err)
	}
}

func TestNew_PicksBackend(t *testing.T) {
	if _, ok := New(Options{}).(*Memory); !ok {
		t.Error("expected in-process cache without a redis url")
	}
	c := New(Options{RedisURL: "localhost:6379"})
	defer c.Close()
	if _, ok := c.(*Redis); !ok {
		t.Error("expected redis cache when a url is set")
	}
}

package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_SameKey_EnforcesMinDelay(t *testing.T) {
	limiter := New(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "api.adzuna.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "api.adzuna.com"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentKeys_NoCrossBlocking(t *testing.T) {
	limiter := New(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "boards-api.greenhouse.io"); err != nil {
		t.Fatalf("greenhouse wait: %v", err)
	}

	// Immediately call for lever; should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "api.lever.co"); err != nil {
		t.Fatalf("lever wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected lever wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_OverrideDelay(t *testing.T) {
	limiter := New(5*time.Second, map[string]time.Duration{"fast.example": 0})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "fast.example"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected override to disable the delay, took %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := New(5*time.Second, nil) // long delay

	// First call to consume the burst.
	if err := limiter.Wait(context.Background(), "api.adzuna.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "api.adzuna.com"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

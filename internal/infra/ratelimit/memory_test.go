package ratelimit

import (
	"context"
	"testing"
	"time"

	"veritas/internal/domain"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)
	quota := domain.SubmissionQuota{Limit: 3, Window: time.Minute}
	limiter := NewMemoryLimiter(quota, MemoryOptions{Now: func() time.Time { return now }})

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(context.Background(), "198.51.100.7")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("upload %d denied inside the quota", i)
		}
		if decision.Remaining != 3-(i+1) {
			t.Fatalf("remaining = %d after upload %d", decision.Remaining, i)
		}
	}

	decision, err := limiter.Allow(context.Background(), "198.51.100.7")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if decision.Allowed {
		t.Fatal("fourth upload in the window should be denied")
	}
	if decision.ResetAt != now.Add(time.Minute) {
		t.Fatalf("ResetAt = %v, want window end", decision.ResetAt)
	}

	// Another uploader has its own window.
	if decision, _ := limiter.Allow(context.Background(), "203.0.113.9"); !decision.Allowed {
		t.Fatal("separate uploader should not share the window")
	}

	// The window rolls over.
	now = now.Add(2 * time.Minute)
	if decision, _ := limiter.Allow(context.Background(), "198.51.100.7"); !decision.Allowed {
		t.Fatal("new window should admit uploads again")
	}
}

func TestMemoryLimiterDisabledQuota(t *testing.T) {
	limiter := NewMemoryLimiter(domain.SubmissionQuota{}, MemoryOptions{})
	for i := 0; i < 100; i++ {
		decision, err := limiter.Allow(context.Background(), "198.51.100.7")
		if err != nil || !decision.Allowed {
			t.Fatalf("disabled quota should admit everything, got %v %v", decision.Allowed, err)
		}
	}
}

func TestMemoryLimiterUploaderCapacity(t *testing.T) {
	now := time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)
	quota := domain.SubmissionQuota{Limit: 1, Window: time.Minute}
	limiter := NewMemoryLimiter(quota, MemoryOptions{
		Now:          func() time.Time { return now },
		MaxUploaders: 1,
	})

	if _, err := limiter.Allow(context.Background(), "198.51.100.7"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if _, err := limiter.Allow(context.Background(), "203.0.113.9"); err == nil {
		t.Fatal("expected an error once uploader capacity is exhausted")
	}

	// Expired windows are dropped to make room.
	now = now.Add(2 * time.Minute)
	if _, err := limiter.Allow(context.Background(), "203.0.113.9"); err != nil {
		t.Fatalf("Allow after expiry: %v", err)
	}
}

// Package ratelimit bounds verification uploads per uploader with a fixed
// window quota. The memory limiter tracks windows in-process; the redis
// limiter shares epoch-aligned windows across daemon replicas.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"veritas/internal/domain"
)

const defaultMaxUploaders = 10000

func uploaderKey(uploader string) string {
	return "quota:verify:" + uploader
}

type memoryLimiter struct {
	quota        domain.SubmissionQuota
	now          func() time.Time
	maxUploaders int

	mu      sync.Mutex
	windows map[string]*uploadWindow
}

type uploadWindow struct {
	started time.Time
	seen    int
}

type MemoryOptions struct {
	Now          func() time.Time
	MaxUploaders int
}

func NewMemoryLimiter(quota domain.SubmissionQuota, opts MemoryOptions) domain.SubmissionLimiter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploaders <= 0 {
		opts.MaxUploaders = defaultMaxUploaders
	}
	return &memoryLimiter{
		quota:        quota,
		now:          opts.Now,
		maxUploaders: opts.MaxUploaders,
		windows:      make(map[string]*uploadWindow),
	}
}

func (l *memoryLimiter) Allow(_ context.Context, uploader string) (domain.QuotaDecision, error) {
	if !l.quota.Enabled() {
		return domain.QuotaDecision{Allowed: true, Limit: l.quota.Limit, Remaining: l.quota.Limit}, nil
	}
	now := l.now()
	key := uploaderKey(uploader)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || !now.Before(w.started.Add(l.quota.Window)) {
		if w == nil && len(l.windows) >= l.maxUploaders {
			l.dropExpired(now)
			if len(l.windows) >= l.maxUploaders {
				return domain.QuotaDecision{}, errors.New("too many active uploaders")
			}
		}
		w = &uploadWindow{started: now}
		l.windows[key] = w
	}
	w.seen++

	remaining := l.quota.Limit - w.seen
	if remaining < 0 {
		remaining = 0
	}
	return domain.QuotaDecision{
		Allowed:   w.seen <= l.quota.Limit,
		Limit:     l.quota.Limit,
		Remaining: remaining,
		ResetAt:   w.started.Add(l.quota.Window),
	}, nil
}

func (l *memoryLimiter) dropExpired(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.started.Add(l.quota.Window)) {
			delete(l.windows, key)
		}
	}
}

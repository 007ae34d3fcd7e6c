package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veritas/internal/domain"

	"github.com/redis/go-redis/v9"
)

// redisLimiter counts uploads in windows aligned to the epoch, so every
// daemon replica derives the same window boundary locally and no TTL has to
// be read back from redis. Each window lives under its own key and expires
// shortly after the window closes.
type redisLimiter struct {
	client *redis.Client
	quota  domain.SubmissionQuota
	now    func() time.Time
}

func NewRedisLimiter(addr, password string, db int, quota domain.SubmissionQuota, now func() time.Time) (domain.SubmissionLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisLimiter{client: client, quota: quota, now: now}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, uploader string) (domain.QuotaDecision, error) {
	if !l.quota.Enabled() {
		return domain.QuotaDecision{Allowed: true, Limit: l.quota.Limit, Remaining: l.quota.Limit}, nil
	}
	windowMillis := l.quota.Window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	windowIdx := l.now().UnixMilli() / windowMillis
	key := fmt.Sprintf("%s:%d", uploaderKey(uploader), windowIdx)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, l.quota.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.QuotaDecision{}, err
	}

	seen := count.Val()
	remaining := l.quota.Limit - int(seen)
	if remaining < 0 {
		remaining = 0
	}
	return domain.QuotaDecision{
		Allowed:   seen <= int64(l.quota.Limit),
		Limit:     l.quota.Limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli((windowIdx + 1) * windowMillis),
	}, nil
}

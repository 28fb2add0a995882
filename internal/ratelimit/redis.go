package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// admitScript prunes, counts, and records in one atomic step so concurrent
// replicas cannot both observe a free slot and admit past the cap.
var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// RedisLimiter is a sorted-set sliding-window limiter for deployments running
// more than one replica. Semantics match MemoryLimiter: same window, same
// cap, rejections leave no trace in the window.
type RedisLimiter struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
	seq    atomic.Uint64
}

// NewRedisLimiter creates a redis-backed rate limiter
func NewRedisLimiter(rdb *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		logger: logger,
		now:    time.Now,
	}
}

// Admit counts the user's events in the trailing window and records the new
// one only when under the cap, as a single scripted operation. The limiter
// fails open when redis is unreachable: it mitigates abuse, it is not an
// auditable ledger.
func (l *RedisLimiter) Admit(ctx context.Context, userID string) bool {
	key := fmt.Sprintf("ratelimit:%s", userID)
	now := l.now()
	cutoff := now.Add(-Window).UnixNano()

	// The sequence number keeps members unique when two admissions land on
	// the same clock reading.
	member := fmt.Sprintf("%d-%d", now.UnixNano(), l.seq.Add(1))
	admitted, err := admitScript.Run(ctx, l.rdb, []string{key},
		cutoff, MaxPerWindow, now.UnixNano(), member, Window.Milliseconds()).Int()
	if err != nil {
		l.logger.Warn("Rate limiter redis check failed, allowing admission",
			zap.String("user_id", userID),
			zap.Error(err))
		return true
	}
	return admitted == 1
}

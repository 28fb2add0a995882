package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb, zap.NewNop()), mr
}

func TestRedisAdmitEnforcesCap(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < MaxPerWindow; i++ {
		if !l.Admit(ctx, "user1234") {
			t.Fatalf("admission %d rejected under cap", i+1)
		}
	}
	if l.Admit(ctx, "user1234") {
		t.Error("admission over cap must be rejected")
	}
}

func TestRedisAdmitRecordsInSameStep(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	ctx := context.Background()

	// Each admission is visible in the window before the call returns, and
	// rejections leave no trace.
	for i := 0; i < MaxPerWindow; i++ {
		l.Admit(ctx, "user1234")
		if n, _ := mr.ZMembers("ratelimit:user1234"); len(n) != i+1 {
			t.Fatalf("after admission %d window holds %d entries", i+1, len(n))
		}
	}
	l.Admit(ctx, "user1234")
	if n, _ := mr.ZMembers("ratelimit:user1234"); len(n) != MaxPerWindow {
		t.Errorf("rejection changed window size to %d", len(n))
	}
}

func TestRedisAdmitIsolatesUsers(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < MaxPerWindow; i++ {
		l.Admit(ctx, "heavy999")
	}
	if l.Admit(ctx, "heavy999") {
		t.Error("heavy user should be limited")
	}
	if !l.Admit(ctx, "light888") {
		t.Error("unrelated user should be admitted")
	}
}

func TestRedisAdmitWindowSlides(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	current := base
	l.now = func() time.Time { return current }

	for i := 0; i < MaxPerWindow; i++ {
		current = base.Add(time.Duration(i) * time.Second)
		if !l.Admit(ctx, "user1234") {
			t.Fatalf("admission %d rejected under cap", i+1)
		}
	}
	current = base.Add(Window - time.Second)
	if l.Admit(ctx, "user1234") {
		t.Error("cap should still hold inside the window")
	}

	// Once the earliest entries age out, capacity frees up again.
	current = base.Add(Window + time.Minute)
	if !l.Admit(ctx, "user1234") {
		t.Error("expired entries should free capacity")
	}
}

func TestRedisAdmitFailsOpen(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	mr.Close()

	if !l.Admit(context.Background(), "user1234") {
		t.Error("unreachable redis must fail open")
	}
}

func TestRedisMemberUniqueness(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	ctx := context.Background()

	// A frozen clock must not collapse admissions into one member.
	frozen := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }

	for i := 0; i < 5; i++ {
		if !l.Admit(ctx, "user1234") {
			t.Fatalf("admission %d rejected", i+1)
		}
	}
	members, err := mr.ZMembers("ratelimit:user1234")
	if err != nil {
		t.Fatalf("ZMembers: %v", err)
	}
	if len(members) != 5 {
		t.Errorf("window holds %d entries, want 5: %v", len(members), members)
	}
}

func BenchmarkRedisAdmit(b *testing.B) {
	mr := miniredis.RunT(b)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := NewRedisLimiter(rdb, zap.NewNop())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Admit(ctx, fmt.Sprintf("user%d", i%1000))
	}
}

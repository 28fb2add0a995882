package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAdmitUpToCap(t *testing.T) {
	l := NewMemoryLimiter(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < MaxPerWindow; i++ {
		if !l.Admit(ctx, "user1234") {
			t.Fatalf("admission %d denied below the cap", i+1)
		}
	}
	if l.Admit(ctx, "user1234") {
		t.Error("admission above the cap should be denied")
	}
}

func TestAdmitIsPerUser(t *testing.T) {
	l := NewMemoryLimiter(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < MaxPerWindow; i++ {
		if !l.Admit(ctx, "usera") {
			t.Fatalf("admission %d denied for usera", i+1)
		}
	}
	if l.Admit(ctx, "usera") {
		t.Error("usera should be capped")
	}
	if !l.Admit(ctx, "userb") {
		t.Error("userb should not be affected by usera's window")
	}
}

func TestWindowExpiry(t *testing.T) {
	l := NewMemoryLimiter(zap.NewNop())
	ctx := context.Background()

	current := time.Now()
	l.now = func() time.Time { return current }

	for i := 0; i < MaxPerWindow; i++ {
		if !l.Admit(ctx, "user1234") {
			t.Fatalf("admission %d denied below the cap", i+1)
		}
	}
	if l.Admit(ctx, "user1234") {
		t.Fatal("cap should be reached")
	}

	// Just inside the window: still denied.
	current = current.Add(Window - time.Second)
	if l.Admit(ctx, "user1234") {
		t.Error("entries still inside the window should count")
	}

	// Past the window: all old entries expire.
	current = current.Add(2 * time.Second)
	if !l.Admit(ctx, "user1234") {
		t.Error("expired entries should free capacity")
	}
}

func TestRejectionsAreNotRecorded(t *testing.T) {
	l := NewMemoryLimiter(zap.NewNop())
	ctx := context.Background()

	current := time.Now()
	l.now = func() time.Time { return current }

	for i := 0; i < MaxPerWindow; i++ {
		l.Admit(ctx, "user1234")
	}

	// Hammer the capped user. None of these may extend the window.
	for i := 0; i < 50; i++ {
		if l.Admit(ctx, "user1234") {
			t.Fatal("capped user admitted")
		}
	}
	if got := len(l.windows["user1234"]); got != MaxPerWindow {
		t.Errorf("recorded admissions = %d, want %d", got, MaxPerWindow)
	}
}

func TestAdmitConcurrent(t *testing.T) {
	l := NewMemoryLimiter(zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	admitted := make([]int, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if l.Admit(ctx, "user1234") {
					admitted[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range admitted {
		total += n
	}
	if total != MaxPerWindow {
		t.Errorf("total admissions = %d, want exactly %d", total, MaxPerWindow)
	}
}

func BenchmarkAdmit(b *testing.B) {
	l := NewMemoryLimiter(zap.NewNop())
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Admit(ctx, fmt.Sprintf("user%d", i%1000))
	}
}

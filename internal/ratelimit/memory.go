// Package ratelimit provides sliding-window admission control per user.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// Window is the trailing interval over which admissions are counted.
	Window = 3600 * time.Second
	// MaxPerWindow is the admission cap per user per window.
	MaxPerWindow = 100
)

// MemoryLimiter is the in-process sliding-window limiter. A restart resets
// all windows, which is acceptable for a DoS mitigation.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	logger  *zap.Logger
	now     func() time.Time
}

// NewMemoryLimiter creates a new in-memory rate limiter
func NewMemoryLimiter(logger *zap.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		logger:  logger,
		now:     time.Now,
	}
}

// Admit prunes entries older than the window, then admits and records the
// event only while the user is below the cap. Rejections are not recorded.
func (l *MemoryLimiter) Admit(ctx context.Context, userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-Window)

	window := l.windows[userID]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= MaxPerWindow {
		l.windows[userID] = kept
		return false
	}

	l.windows[userID] = append(kept, now)
	return true
}

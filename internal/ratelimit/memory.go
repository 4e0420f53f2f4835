package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	count   int
	resetAt time.Time
}

type memoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowState
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter creates an in-process fixed-window limiter, used in
// tests and when Redis is not configured.
func NewMemoryLimiter(max int, window time.Duration) Limiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryLimiter{
		windows: make(map[string]*windowState),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.windows[key]
	if !ok || l.now().After(state.resetAt) {
		state = &windowState{resetAt: l.now().Add(l.window)}
		l.windows[key] = state
	}
	state.count++
	return state.count <= l.max, nil
}

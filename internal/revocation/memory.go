package revocation

import (
	"context"
	"sync"
	"time"
)

type memoryList struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	now    func() time.Time
}

// NewMemoryList creates an in-process revocation list, used in tests and
// when Redis is not configured.
func NewMemoryList() List {
	return &memoryList{expiry: make(map[string]time.Time), now: time.Now}
}

func (l *memoryList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expiry[tokenID] = l.now().Add(ttl)
	return nil
}

func (l *memoryList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.expiry[tokenID]
	if !ok {
		return false, nil
	}
	if l.now().After(until) {
		delete(l.expiry, tokenID)
		return false, nil
	}
	return true, nil
}

// Package revocation tracks credentials invalidated before their natural
// expiry. Entries are keyed by token ID and only need to live as long as
// the token itself would have.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// List records revoked token IDs.
type List interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisList struct {
	client *redis.Client
}

// NewRedisList creates a Redis-backed revocation list.
func NewRedisList(client *redis.Client) List {
	return &redisList{client: client}
}

func (l *redisList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past expiry; nothing to record.
		return nil
	}
	if err := l.client.Set(ctx, key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *redisList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func key(tokenID string) string {
	return "revoked:" + tokenID
}
